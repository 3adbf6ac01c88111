package similarity

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBackendUnavailable is returned when the similarity backend cannot be
// reached or its circuit breaker is open. Callers fall back to the textual
// provider and report a warning; they do not abort the run.
var ErrBackendUnavailable = errors.New("similarity backend unavailable")

// BreakerConfig holds circuit breaker tuning for backend HTTP calls.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that trips the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before allowing probes.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the consecutive-success count in half-open
	// state required to close the circuit again.
	HalfOpenMaxSuccesses uint32
}

// newBreaker builds a gobreaker instance for one named backend. Defaults:
// 3 failures to trip, 30s open, 2 successes to close.
func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxSuccesses == 0 {
		cfg.HalfOpenMaxSuccesses = 2
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	})
}
