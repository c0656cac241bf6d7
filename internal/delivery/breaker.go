package delivery

import (
	"log/slog"
	"sync"
	"time"

	"github.com/trandat/shipper/internal/metrics"
)

// CircuitState is the breaker's current position.
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// BreakerConfig defines circuit breaker behavior.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultBreakerConfig provides sensible defaults.
var DefaultBreakerConfig = BreakerConfig{
	FailureThreshold: 5,
	RecoveryTimeout:  30 * time.Second,
}

// CircuitBreaker guards one downstream target. State is process-local
// and not persisted across restarts; concurrent workers each detect a
// downstream outage independently.
type CircuitBreaker struct {
	mu sync.Mutex

	target       string
	cfg          BreakerConfig
	state        CircuitState
	failureCount int
	lastFailure  time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker for the named target.
// Zero config fields fall back to DefaultBreakerConfig.
func NewCircuitBreaker(target string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreakerConfig.RecoveryTimeout
	}
	return &CircuitBreaker{
		target: target,
		cfg:    cfg,
		state:  StateClosed,
		now:    time.Now,
	}
}

// AllowRequest reports whether a delivery attempt may proceed. Its only
// side effect is the Open to HalfOpen transition once the recovery
// timeout has elapsed since the last failure.
func (b *CircuitBreaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
			b.setState(StateHalfOpen)
			slog.Info("Circuit breaker moved to half-open", "target", b.target)
			return true
		}
		return false
	}
	return false
}

// RecordSuccess resets the failure counter and closes the circuit if a
// half-open probe succeeded.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
		slog.Info("Circuit breaker returned to closed", "target", b.target)
	}
}

// RecordFailure increments the consecutive-failure counter and may trip
// the circuit. A failure while half-open reopens immediately: the probe
// itself failed, so there is no reason to re-cross the full threshold.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()

	switch b.state {
	case StateHalfOpen:
		b.setState(StateOpen)
		slog.Warn("Circuit breaker reopened, half-open probe failed", "target", b.target)
	case StateClosed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.setState(StateOpen)
			slog.Warn("Circuit breaker tripped to open",
				"target", b.target,
				"failures", b.failureCount,
			)
		}
	}
}

// State returns the current circuit state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) setState(s CircuitState) {
	b.state = s
	metrics.CircuitState.WithLabelValues(b.target).Set(stateValue(s))
}

func stateValue(s CircuitState) float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	}
	return 0
}
