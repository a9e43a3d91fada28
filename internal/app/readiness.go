package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/noeyos-p/hirehub-ai/internal/adapter/httpserver"
	"github.com/noeyos-p/hirehub-ai/internal/config"
)

// BuildReadinessProbes returns the gemini probe, plus a redis probe when a
// client is configured.
func BuildReadinessProbes(cfg config.Config, rdb *redis.Client) []httpserver.ReadinessProbe {
	probes := []httpserver.ReadinessProbe{{
		Name: "gemini",
		Check: func(context.Context) error {
			if cfg.GeminiAPIKey == "" {
				return fmt.Errorf("gemini api key not configured")
			}
			return nil
		},
	}}
	if rdb != nil {
		probes = append(probes, httpserver.ReadinessProbe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return probes
}
