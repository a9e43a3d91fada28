package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

const quotaWindow = 60 * time.Second

// Clock abstracts time so the gate can be driven by tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// QuotaGate self-throttles calls to one upstream model account with a
// sliding 60s window and a daily counter. It is in-process only and does not
// coordinate across replicas.
type QuotaGate struct {
	rpm    int
	rpd    int
	margin time.Duration
	clock  Clock

	mu           sync.Mutex
	window       []time.Time
	dailyCount   int
	dailyResetAt time.Time
}

// NewQuotaGate builds a gate. rpm or rpd <= 0 disables that limit.
func NewQuotaGate(limits config.QuotaLimits, clock Clock) *QuotaGate {
	if clock == nil {
		clock = SystemClock
	}
	return &QuotaGate{
		rpm:          limits.PerMinute,
		rpd:          limits.PerDay,
		margin:       limits.SafetyMargin,
		clock:        clock,
		dailyResetAt: clock.Now().Add(24 * time.Hour),
	}
}

// CheckAndWait must be called before every outbound model call. It fails fast
// with domain.ErrQuotaExceeded once the daily budget is spent, and blocks
// while the per-minute window is full.
func (g *QuotaGate) CheckAndWait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	var waited time.Duration
	for {
		g.mu.Lock()
		now := g.clock.Now()
		if !now.Before(g.dailyResetAt) {
			g.dailyCount = 0
			g.dailyResetAt = now.Add(24 * time.Hour)
		}
		g.pruneLocked(now)
		if g.rpd > 0 && g.dailyCount >= g.rpd {
			resetIn := g.dailyResetAt.Sub(now)
			g.mu.Unlock()
			observability.QuotaRejectionsTotal.Inc()
			observability.LoggerFromContext(ctx).Warn("daily model quota exhausted",
				slog.Int("rpd", g.rpd),
				slog.Duration("reset_in", resetIn))
			return fmt.Errorf("op=quota.CheckAndWait: daily limit %d reached: %w", g.rpd, domain.ErrQuotaExceeded)
		}
		if g.rpm <= 0 || len(g.window) < g.rpm {
			g.window = append(g.window, now)
			g.dailyCount++
			g.mu.Unlock()
			if waited > 0 {
				observability.QuotaWaitSeconds.Observe(waited.Seconds())
			}
			return nil
		}
		wait := g.window[0].Add(quotaWindow).Sub(now) + g.margin
		g.mu.Unlock()

		observability.LoggerFromContext(ctx).Info("model quota window full; waiting",
			slog.Int("rpm", g.rpm),
			slog.Duration("wait", wait))
		if err := g.clock.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("op=quota.CheckAndWait: %w", err)
		}
		waited += wait
	}
}

// pruneLocked drops timestamps that have aged out of the window.
func (g *QuotaGate) pruneLocked(now time.Time) {
	cut := 0
	for cut < len(g.window) && now.Sub(g.window[cut]) >= quotaWindow {
		cut++
	}
	if cut > 0 {
		g.window = append(g.window[:0], g.window[cut:]...)
	}
}

// QuotaSnapshot is a read-only view of the gate state.
type QuotaSnapshot struct {
	CallsLastMinute int       `json:"calls_last_minute"`
	DailyCount      int       `json:"daily_count"`
	DailyResetAt    time.Time `json:"daily_reset_at"`
}

// Snapshot returns the current counters after pruning.
func (g *QuotaGate) Snapshot() QuotaSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(g.clock.Now())
	return QuotaSnapshot{CallsLastMinute: len(g.window), DailyCount: g.dailyCount, DailyResetAt: g.dailyResetAt}
}
