// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
)

// IsSQLiteConflictError reports whether err is SQLITE_BUSY or "database is
// locked". Both are concurrency errors that warrant a retry.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// IsPostgresConflictError reports whether err is a serialization failure or
// a detected deadlock.
func IsPostgresConflictError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01":
		return true
	}
	return false
}

// RetryPolicy bounds a retry loop with exponential backoff.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Retryable func(error) bool
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. Delays double after each failure.
func Retry(ctx context.Context, p RetryPolicy, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) || i == attempts-1 {
			return err
		}

		delay := p.BaseDelay * time.Duration(1<<i)
		slog.Debug("Retrying after conflict", "op", op, "attempt", i+1, "delay", delay, "error", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
