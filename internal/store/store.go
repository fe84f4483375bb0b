// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

// DefaultTTL is how long a session lives after its last write.
const DefaultTTL = 24 * time.Hour

// SessionStore persists honeypot sessions keyed by session id. Every write
// resets the session's time-to-live.
type SessionStore interface {
	// Get returns the session, or nil and no error when it does not exist
	// or has expired.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Set creates or replaces the session.
	Set(ctx context.Context, session *domain.Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// PurgeExpired removes every expired session and reports how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Clock returns the current time.
type Clock func() time.Time

// Option configures a store.
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock Clock
}

// WithTTL sets the session time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func encodeSession(s *domain.Session) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, errors.New("encode session: missing session id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

func decodeSession(data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
