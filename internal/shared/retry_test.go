package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSQLiteConflictError(t *testing.T) {
	assert.False(t, IsSQLiteConflictError(nil))
	assert.True(t, IsSQLiteConflictError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsSQLiteConflictError(fmt.Errorf("upsert: %w", errors.New("database is locked"))))
	assert.False(t, IsSQLiteConflictError(errors.New("no such table: sessions")))
}

func TestIsPostgresConflictError(t *testing.T) {
	assert.False(t, IsPostgresConflictError(nil))
	assert.True(t, IsPostgresConflictError(fmt.Errorf("set: %w", &pq.Error{Code: "40001"})))
	assert.True(t, IsPostgresConflictError(&pq.Error{Code: "40P01"}))
	assert.False(t, IsPostgresConflictError(&pq.Error{Code: "23505"}))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		Retryable: IsSQLiteConflictError,
	}, "test", func() error {
		calls++
		if calls < 2 {
			return errors.New("SQLITE_BUSY")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryGivesUpOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("constraint failed")
	err := Retry(context.Background(), RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		Retryable: IsSQLiteConflictError,
	}, "test", func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		Retryable: IsSQLiteConflictError,
	}, "test", func() error {
		calls++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Hour,
		Retryable: IsSQLiteConflictError,
	}, "test", func() error {
		return errors.New("SQLITE_BUSY")
	})
	require.ErrorIs(t, err, context.Canceled)
}
