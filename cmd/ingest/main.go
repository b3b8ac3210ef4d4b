package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/msanchezp/lexrag/internal/bootstrap"
	"github.com/msanchezp/lexrag/internal/config"
	"github.com/msanchezp/lexrag/internal/core/domain"
)

func main() {
	var (
		worker = flag.Bool("worker", false, "subscribe to the reindex queue instead of running once")
		all    = flag.Bool("all", false, "ingest the whole catalog")
		laws   = flag.String("laws", "", "comma-separated law ids to ingest")
		force  = flag.Bool("force", false, "reprocess units even when unchanged")
		gc     = flag.Bool("gc", false, "delete superseded collection versions after the run")
	)
	flag.Parse()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "lexrag-ingest", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if *worker {
		runWorker(ctx, cfg, app)
		return
	}

	scope := domain.IngestScope{Force: *force, RequestedBy: "cli"}
	if !*all && *laws != "" {
		for _, id := range strings.Split(*laws, ",") {
			if id = strings.TrimSpace(id); id != "" {
				scope.LawIDs = append(scope.LawIDs, id)
			}
		}
	}

	tag, err := app.Ingestor.Ingest(ctx, scope)
	if err != nil {
		log.Fatalf("ingest error: %v", err)
	}
	log.Printf("ingest done, version tag %s", tag)

	if *gc {
		if err := app.Ingestor.GCVersions(ctx, cfg.KeepVersions); err != nil {
			log.Fatalf("gc error: %v", err)
		}
		log.Printf("gc done, kept %d versions per collection", cfg.KeepVersions)
	}
}

func runWorker(ctx context.Context, cfg config.Config, app *bootstrap.App) {
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: app.IngestMetrics.Handler(),
	}
	go func() {
		log.Printf("ingest metrics on :%s", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("ingest worker subscribed")
	err := app.Queue.SubscribeReindex(ctx, func(handlerCtx context.Context, scope domain.IngestScope) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()
		tag, err := app.Ingestor.Ingest(runCtx, scope)
		if err != nil {
			return err
		}
		app.Log.Info("reindex_done", "version_tag", tag, "requested_by", scope.RequestedBy)
		return app.Ingestor.GCVersions(runCtx, cfg.KeepVersions)
	})
	if err != nil && err != context.Canceled {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
