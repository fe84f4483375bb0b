package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/shared"
)

// dialect holds the statements that differ between SQL backends. Expiry
// timestamps are stored as Unix milliseconds in both.
type dialect struct {
	name      string
	schema    string
	get       string
	upsert    string
	delete    string
	deleteExp string
	purge     string
	retryable func(error) bool
}

// sqlStore implements SessionStore on database/sql.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	opts    options
	retry   shared.RetryPolicy
}

func newSQLStore(db *sql.DB, d dialect, opts []Option) (*sqlStore, error) {
	s := &sqlStore{
		db:      db,
		dialect: d,
		opts:    buildOptions(opts),
		retry: shared.RetryPolicy{
			Attempts:  3,
			BaseDelay: 100 * time.Millisecond,
			Retryable: d.retryable,
		},
	}
	if _, err := db.Exec(d.schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Get returns the stored session. A row past its expiry is deleted and
// reported as missing.
func (s *sqlStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var state []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, s.dialect.get, id).Scan(&state, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	now := s.opts.clock()
	if now.UnixMilli() >= expiresAt {
		err := shared.Retry(ctx, s.retry, "delete expired session", func() error {
			_, err := s.db.ExecContext(ctx, s.dialect.deleteExp, id, now.UnixMilli())
			return err
		})
		if err != nil {
			slog.Warn("Failed to delete expired session", "backend", s.dialect.name, "session_id", id, "error", err)
		}
		return nil, nil
	}

	return decodeSession(state)
}

// Set writes the session and resets its expiry.
func (s *sqlStore) Set(ctx context.Context, session *domain.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	now := s.opts.clock()
	expiresAt := now.Add(s.opts.ttl).UnixMilli()
	err = shared.Retry(ctx, s.retry, "upsert session", func() error {
		_, err := s.db.ExecContext(ctx, s.dialect.upsert, session.ID, string(data), expiresAt, now.UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", session.ID, err)
	}
	return nil
}

// Delete removes a session.
func (s *sqlStore) Delete(ctx context.Context, id string) error {
	err := shared.Retry(ctx, s.retry, "delete session", func() error {
		_, err := s.db.ExecContext(ctx, s.dialect.delete, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// PurgeExpired deletes every expired row.
func (s *sqlStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.purge, s.opts.clock().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Ping verifies database connectivity.
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
