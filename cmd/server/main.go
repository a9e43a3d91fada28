// Command server starts the HireHub AI HTTP server.
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

	httpserver "github.com/noeyos-p/hirehub-ai/internal/adapter/httpserver"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/news/naver"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/queue/redpanda"
	"github.com/noeyos-p/hirehub-ai/internal/app"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/service/ratelimiter"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set; every model call will degrade to fallback payloads")
	}

	stack := app.NewAIStack(cfg, nil, nil)
	moderation, err := app.NewModerationPipeline(cfg, stack.Orchestrator, stack.Models)
	if err != nil {
		slog.Error("moderation rules load failed", slog.Any("error", err))
		os.Exit(1)
	}

	var searcher domain.NewsSearcher
	if cfg.NewsEnabled() {
		searcher = naver.New(cfg)
	} else {
		slog.Warn("news search disabled; NAVER_CLIENT_ID/NAVER_CLIENT_SECRET not set")
	}

	var async *usecase.ModerationSubmitter
	if cfg.AsyncModerationEnabled() {
		producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers)
		if err != nil {
			slog.Error("redpanda producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer producer.Close()
		async = usecase.NewModerationSubmitter(producer)
	}

	rdb, err := app.NewRedisClient(cfg)
	if err != nil {
		slog.Error("redis config invalid", slog.Any("error", err))
		os.Exit(1)
	}
	var limiter ratelimiter.Limiter
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		limiter = ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			app.AIBucket: ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin),
		})
	}

	srv := &httpserver.Server{
		Cfg:        cfg,
		Moderation: moderation,
		Matcher:    usecase.NewMatchScorer(stack.Orchestrator, stack.Models, cfg.MatchMaxChars),
		Assistant:  usecase.NewAssistant(stack.Orchestrator, stack.Embedder, stack.Models),
		Interview:  usecase.NewInterview(stack.Orchestrator, stack.Models),
		News:       usecase.NewNewsDigest(searcher, stack.Orchestrator, stack.Models, nil),
		Async:      async,
		Probes:     app.BuildReadinessProbes(cfg, rdb),
	}

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv, limiter),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.Bool("news_enabled", cfg.NewsEnabled()),
			slog.Bool("async_moderation", cfg.AsyncModerationEnabled()),
			slog.Bool("redis_rate_limit", rdb != nil))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
