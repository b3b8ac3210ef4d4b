package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/msanchezp/lexrag/internal/batch"
	"github.com/msanchezp/lexrag/internal/bootstrap"
	"github.com/msanchezp/lexrag/internal/config"
)

func main() {
	var (
		dir        = flag.String("dir", "", "directory of question files (required)")
		out        = flag.String("out", "", "output directory, defaults to RESULTS_DIR")
		validate   = flag.Bool("validate", false, "audit answers against gold labels")
		quarantine = flag.Bool("quarantine", false, "move unparsable files into _unresolved")
		workers    = flag.Int("workers", 4, "concurrent questions")
	)
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "lexrag-batch", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	outDir := *out
	if outDir == "" {
		outDir = cfg.ResultsDir
	}

	sum, err := app.Batch.Run(ctx, batch.Options{
		Dir:           *dir,
		OutJSONL:      filepath.Join(outDir, "resultados.jsonl"),
		OutDir:        filepath.Join(outDir, "respuestas"),
		ReportDir:     filepath.Join(outDir, "informes"),
		Workers:       *workers,
		Validate:      *validate,
		MinConfidence: cfg.MinConfidence,
		Quarantine:    *quarantine,
	})
	if err != nil {
		log.Fatalf("batch error: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		log.Fatalf("encode summary: %v", err)
	}
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
