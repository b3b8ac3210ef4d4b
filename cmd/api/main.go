package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/msanchezp/lexrag/internal/adapters/http"
	"github.com/msanchezp/lexrag/internal/bootstrap"
	"github.com/msanchezp/lexrag/internal/config"
	"github.com/msanchezp/lexrag/internal/core/domain"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "lexrag-api", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if cfg.AutoIngestOnStart {
		go func() {
			tag, err := app.Ingestor.Ingest(ctx, domain.IngestScope{RequestedBy: "startup"})
			if err != nil {
				app.Log.Error("startup_ingest_failed", "error", err)
				return
			}
			app.Log.Info("startup_ingest_done", "version_tag", tag)
		}()
	}

	router := httpadapter.NewRouter(
		app.Selector,
		app.LawIndex,
		app.Queue,
		app.Batch,
		app.SolverMetrics.Handler(),
		cfg.APIKey,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
