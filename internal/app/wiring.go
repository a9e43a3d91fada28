package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai/gemini"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

// AIStack bundles the model-facing pieces shared by the server and worker.
// The quota gate is per process.
type AIStack struct {
	Orchestrator *ai.Orchestrator
	Embedder     domain.Embedder
	Models       usecase.Models
}

// NewAIStack builds the gated, breaker-protected orchestrator over invoker.
// A nil invoker selects the Gemini client.
func NewAIStack(cfg config.Config, invoker domain.ModelInvoker, embedder domain.Embedder) *AIStack {
	if invoker == nil || embedder == nil {
		g := gemini.New(cfg)
		if invoker == nil {
			invoker = g
		}
		if embedder == nil {
			embedder = g
		}
	}
	gate := ai.NewQuotaGate(cfg.GetQuotaLimits(), ai.SystemClock)
	return &AIStack{
		Orchestrator: ai.NewOrchestrator(invoker, gate, ai.NewBreakerSet(ai.SystemClock)),
		Embedder:     ai.NewEmbedCache(ai.NewGatedEmbedder(embedder, gate), cfg.EmbedCacheSize),
		Models:       usecase.Models{Primary: cfg.GeminiPrimaryModel, Secondary: cfg.GeminiFallbackModel},
	}
}

// NewModerationPipeline loads the rule file and wires the pipeline.
func NewModerationPipeline(cfg config.Config, runner usecase.Runner, models usecase.Models) (*usecase.ModerationPipeline, error) {
	raw, err := config.LoadModerationRules(cfg.ModerationRulesPath)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewModerationPipeline: %w", err)
	}
	rules, err := usecase.CompileRules(raw)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewModerationPipeline: %w", err)
	}
	return usecase.NewModerationPipeline(runner, rules, models, usecase.ModerationOptions{
		Threshold: cfg.ModerationRiskThreshold,
		MinLength: cfg.ModerationMinLength,
		MaxChars:  cfg.ModerationMaxChars,
		CacheSize: cfg.ModerationCacheSize,
	}), nil
}

// NewRedisClient returns nil when no URL is configured.
func NewRedisClient(cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewRedisClient: %w", err)
	}
	return redis.NewClient(opts), nil
}
