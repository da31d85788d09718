package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docmark/internal/api"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/convert"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/engine"
	"github.com/dgallion1/docmark/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.Error("work dir unavailable", "dir", cfg.WorkDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Converters share one latency window.
	stats := convert.NewStats(time.Hour)
	tool := func(name string) *convert.Tool {
		return &convert.Tool{Timeout: cfg.ConvertTimeout, Stats: stats, Log: log.With("converter", name)}
	}
	eng := engine.NewPDFCPU(log)
	merger := &document.Merger{
		Engine:  eng,
		Word:    &convert.Word{SofficePath: cfg.SofficePath, Tool: tool("soffice")},
		WorkDir: cfg.WorkDir,
		Log:     log,
	}
	extractor := &document.Extractor{
		Engine:  eng,
		PDFA:    &convert.PDFA{Command: cfg.PDFACommand, Tool: tool("pdfa")},
		WorkDir: cfg.WorkDir,
		Log:     log,
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, merger, extractor, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, eng, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docmark", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
