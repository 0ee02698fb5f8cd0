package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ownage/approvedeny-go"
	"github.com/ownage/approvedeny-go/internal/checks"
	"github.com/ownage/approvedeny-go/internal/config"
	"github.com/ownage/approvedeny-go/internal/metrics"
	"github.com/ownage/approvedeny-go/internal/webhooks"
	"github.com/ownage/approvedeny-go/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// The API key and webhook encryption key are critical configuration;
	// the application should not start without them.
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("Invalid configuration. Application cannot start.", "error", err)
		os.Exit(1)
	}

	client, err := approvedeny.New(cfg.APIKey,
		approvedeny.WithBaseURL(cfg.BaseURL),
		approvedeny.WithHTTPTimeout(cfg.HTTPTimeout),
		approvedeny.WithDebugLogging(cfg.Debug),
	)
	if err != nil {
		logger.Error("Failed to create approvedeny client", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// 1. Create the idempotency store.
	idempotencyStore := worker.NewIdempotencyStore()

	// 2. Create and start the worker pool.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	workerPool := worker.NewPool(cfg.QueueSize, logger, idempotencyStore, client)
	workerPool.MaxRetries = cfg.MaxRetries
	workerPool.Metrics = m
	workerPool.Start(workerCtx, cfg.Workers)

	// 3. Instantiate the handlers, passing the webhook handler the worker pool's job queue.
	webhookHandler := webhooks.NewHandler(logger, workerPool.JobQueue, idempotencyStore, m)
	checksHandler := &checks.Handler{Logger: logger, Client: client, Metrics: m}

	server := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: newRouter(routerDeps{
			logger:          logger,
			encryptionKey:   cfg.EncryptionKey,
			signatureHeader: cfg.SignatureHeader,
			webhooks:        webhookHandler,
			checks:          checksHandler,
			metrics:         m,
			gatherer:        registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", server.Addr, "api", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shut down the HTTP server first so no new jobs are queued.
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Stop the worker pool. Pending retries are abandoned once the shutdown deadline passes.
	stopped := make(chan struct{})
	go func() {
		workerPool.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		cancelWorkers()
		<-stopped
	}

	logger.Info("Server exited gracefully")
}
