package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	// MaxFailures consecutive failures trip the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// HalfOpenMaxRequests successes in half-open state close the circuit.
	HalfOpenMaxRequests uint32
}

// DefaultBreakerConfig returns the settings used for both LLM capabilities.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:         3,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}
}

// Breaker guards a remote capability so that a failing backend is skipped
// quickly instead of adding its timeout to every request.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a named breaker.
func NewBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			var done callerDone
			return err == nil || errors.As(err, &done)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.cb.Execute(func() (interface{}, error) {
		result, err := fn()
		if err != nil && ctx.Err() != nil {
			return result, callerDone{err: err}
		}
		return result, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	var done callerDone
	if errors.As(err, &done) {
		return result, done.err
	}
	return result, err
}

// callerDone marks a failure caused by the caller's context ending. It is not
// counted against the backend.
type callerDone struct {
	err error
}

func (e callerDone) Error() string { return e.err.Error() }
func (e callerDone) Unwrap() error { return e.err }

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
