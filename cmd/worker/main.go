package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkoster/beleghub/internal/bootstrap"
	"github.com/pkoster/beleghub/internal/config"
	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/observability/logging"
	"github.com/pkoster/beleghub/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.New("worker", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentPersisted(ctx, func(handlerCtx context.Context, event domain.DocumentPersistedEvent) error {
		if !event.PersistedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(event.PersistedAt))
		}
		workerMetrics.StartExtraction()
		started := time.Now()

		extractCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()
		extractErr := app.ContactUC.ExtractByDocumentID(extractCtx, event.DocumentID)

		workerMetrics.FinishExtraction("worker", time.Since(started), extractErr)
		return extractErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
