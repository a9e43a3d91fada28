// Package usecase contains application business logic services.
package usecase

import (
	"context"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/ai"
)

// Models names the primary and secondary generative models.
type Models struct {
	Primary   string
	Secondary string
}

// Runner executes fallback plans; *ai.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, plan ai.FallbackPlan) ai.Outcome
}

// ReadinessCheck represents a single readiness probe result used by handlers.
type ReadinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
