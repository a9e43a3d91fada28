package config

import (
	"time"
)

// QuotaLimits is the budget the QuotaGate enforces against the model account.
type QuotaLimits struct {
	PerMinute    int
	PerDay       int
	SafetyMargin time.Duration
}

// GetQuotaLimits returns the configured upstream budget.
func (c Config) GetQuotaLimits() QuotaLimits {
	return QuotaLimits{
		PerMinute:    c.AIQuotaRPM,
		PerDay:       c.AIQuotaRPD,
		SafetyMargin: c.AIQuotaSafetyMargin,
	}
}

// BackoffConfig holds exponential backoff knobs.
type BackoffConfig struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// GetPublishBackoff returns backoff configuration for sibling-backend writes.
// In test environments, uses much shorter timeouts for faster test execution.
func (c Config) GetPublishBackoff() BackoffConfig {
	if c.IsTest() {
		return BackoffConfig{
			MaxElapsedTime:  2 * time.Second,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     200 * time.Millisecond,
			Multiplier:      2.0,
		}
	}
	return BackoffConfig{
		MaxElapsedTime:  c.PublishMaxElapsedTime,
		InitialInterval: c.PublishInitialInterval,
		MaxInterval:     c.PublishMaxInterval,
		Multiplier:      c.PublishMultiplier,
	}
}
