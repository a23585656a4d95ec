package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docatlas/internal/api"
	"github.com/dgallion1/docatlas/internal/config"
	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/dgallion1/docatlas/internal/pipeline"
	"github.com/dgallion1/docatlas/internal/storage"
	"golang.org/x/net/netutil"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage.
	files, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Error("open file store", "error", err)
		os.Exit(1)
	}
	registry, err := storage.OpenRegistry(cfg.RegistryPath())
	if err != nil {
		log.Error("open registry", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	p := extraction.New(log, cfg.PipelineOptions()...)
	orch := pipeline.NewOrchestrator(cfg, files, registry, p, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		log.Error("listen", "error", err)
		os.Exit(1)
	}
	ln = netutil.LimitListener(ln, cfg.MaxConnections)

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		registry.Close()
	}()

	log.Info("starting docatlas",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"workers", cfg.WorkerCount,
		"max_connections", cfg.MaxConnections,
	)
	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
