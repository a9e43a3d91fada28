package redpanda

import (
	"sync"
	"time"
)

// pollBackoff spaces out polls after fetch errors. Successes reset it.
type pollBackoff struct {
	mu       sync.Mutex
	base     time.Duration
	max      time.Duration
	factor   float64
	failures int
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	return &pollBackoff{base: base, max: max, factor: 2}
}

// Failure records a failed poll and returns how long to wait before the next.
func (b *pollBackoff) Failure() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	d := float64(b.base)
	for i := 1; i < b.failures; i++ {
		d *= b.factor
		if d >= float64(b.max) {
			return b.max
		}
	}
	return time.Duration(d)
}

func (b *pollBackoff) Success() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

// Failures reports consecutive failed polls.
func (b *pollBackoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
