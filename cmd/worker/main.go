// Package main provides the worker application entry point.
// The worker consumes async moderation requests from Redpanda and publishes
// the periodic news digest to the backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/backend"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/queue/redpanda"
	"github.com/noeyos-p/hirehub-ai/internal/app"
	"github.com/noeyos-p/hirehub-ai/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Queue and digest metrics live on a dedicated scrape endpoint.
	observability.InitMetrics()
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerMetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if sched := app.NewDigestScheduler(backend.NewPublisher(cfg), cfg.DigestInterval, cfg.DigestBotUserID); sched != nil {
		go sched.Run(ctx)
	}

	done := make(chan struct{})
	if cfg.AsyncModerationEnabled() {
		stack := app.NewAIStack(cfg, nil, nil)
		pipeline, err := app.NewModerationPipeline(cfg, stack.Orchestrator, stack.Models)
		if err != nil {
			slog.Error("moderation rules load failed", slog.Any("error", err))
			os.Exit(1)
		}

		producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers)
		if err != nil {
			slog.Error("redpanda producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer producer.Close()

		consumer, err := redpanda.NewConsumer(redpanda.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Workers: cfg.ModerationWorkers,
		}, pipeline, producer)
		if err != nil {
			slog.Error("redpanda consumer init failed", slog.Any("error", err))
			os.Exit(1)
		}

		slog.Info("starting moderation consumer", slog.Int("workers", cfg.ModerationWorkers))
		go func() {
			defer close(done)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("moderation consumer error", slog.Any("error", err))
			}
			consumer.Close()
		}()
	} else {
		slog.Warn("KAFKA_BROKERS not set; async moderation consumer disabled")
		close(done)
	}

	slog.Info("worker started successfully, waiting for shutdown signal")
	<-ctx.Done()
	slog.Info("signal received, shutting down")

	select {
	case <-done:
	case <-time.After(cfg.ServerShutdownTimeout):
		slog.Warn("moderation consumer did not stop in time")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
