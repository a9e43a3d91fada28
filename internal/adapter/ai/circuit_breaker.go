package ai

import (
	"log/slog"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen skips the model until the recovery timeout has passed.
	CircuitOpen
	// CircuitHalfOpen lets probes through; the next result decides.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultFailureThreshold = 3
	defaultRecoveryTimeout  = 30 * time.Second
)

// CircuitBreaker tracks consecutive failures of one model.
type CircuitBreaker struct {
	mu               sync.Mutex
	modelID          string
	failureThreshold int
	recoveryTimeout  time.Duration
	clock            Clock
	state            CircuitState
	failureCount     int
	lastFailure      time.Time
	openedAt         time.Time
}

// NewCircuitBreaker creates a breaker that opens after 3 consecutive failures
// within 30s and probes again after 30s.
func NewCircuitBreaker(modelID string, clock Clock) *CircuitBreaker {
	if clock == nil {
		clock = SystemClock
	}
	return &CircuitBreaker{
		modelID:          modelID,
		failureThreshold: defaultFailureThreshold,
		recoveryTimeout:  defaultRecoveryTimeout,
		clock:            clock,
		state:            CircuitClosed,
	}
}

// ShouldAttempt reports whether a call to the model may go ahead. An open
// breaker past its recovery timeout moves to half-open.
func (cb *CircuitBreaker) ShouldAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.clock.Now().Sub(cb.openedAt) < cb.recoveryTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
		return true
	default:
		// half-open: probe until a result closes or reopens the circuit
		return true
	}
}

// RecordSuccess closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed after successful probe", slog.String("model", cb.modelID))
	}
	cb.failureCount = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failed call; a failed probe reopens immediately.
// Failures older than the recovery timeout no longer count toward the
// threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()
	if cb.state == CircuitClosed && cb.failureCount > 0 && now.Sub(cb.lastFailure) >= cb.recoveryTimeout {
		cb.failureCount = 0
	}
	cb.lastFailure = now
	cb.failureCount++
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("model", cb.modelID),
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.state = CircuitOpen
		cb.openedAt = now
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerSet hands out one breaker per model.
type BreakerSet struct {
	mu       sync.Mutex
	clock    Clock
	breakers map[string]*CircuitBreaker
}

// NewBreakerSet creates an empty set.
func NewBreakerSet(clock Clock) *BreakerSet {
	return &BreakerSet{clock: clock, breakers: make(map[string]*CircuitBreaker)}
}

// For returns or creates the breaker for a model.
func (s *BreakerSet) For(modelID string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[modelID]; ok {
		return b
	}
	b := NewCircuitBreaker(modelID, s.clock)
	s.breakers[modelID] = b
	return b
}

// States reports each known model's breaker state.
func (s *BreakerSet) States() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.breakers))
	for id, b := range s.breakers {
		out[id] = b.State().String()
	}
	return out
}
