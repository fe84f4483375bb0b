// Package report delivers the final result of a completed scam engagement
// to an external callback endpoint.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/honeypot/internal/domain"
)

// Delivery defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Payload is the JSON body posted to the callback endpoint. The session id
// is sent under both keys the receiver accepts.
type Payload struct {
	SessionID              string                       `json:"sessionId"`
	SessionIDAlias         string                       `json:"sessionld"`
	ScamDetected           bool                         `json:"scamDetected"`
	TotalMessagesExchanged int                          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  domain.ExtractedIntelligence `json:"extractedIntelligence"`
	AgentNotes             string                       `json:"agentNotes"`
}

// NewPayload builds the report body for s. Empty intelligence lists are
// encoded as [] rather than null.
func NewPayload(s *domain.Session) Payload {
	return Payload{
		SessionID:              s.ID,
		SessionIDAlias:         s.ID,
		ScamDetected:           s.ScamDetected,
		TotalMessagesExchanged: s.TotalMessages,
		ExtractedIntelligence:  s.Intelligence.Merge(domain.ExtractedIntelligence{}),
		AgentNotes:             s.AgentNotes,
	}
}

// Reporter posts final results with bounded retries.
type Reporter struct {
	endpoint    string
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error
	logger      *slog.Logger
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reporter) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout sets the per-attempt timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.client = &http.Client{Timeout: d}
		}
	}
}

// WithBackoff sets the attempt count and the initial delay between attempts.
func WithBackoff(attempts int, base time.Duration) Option {
	return func(r *Reporter) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
		if base >= 0 {
			r.baseDelay = base
		}
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(r *Reporter) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reporter posting to endpoint.
func New(endpoint string, opts ...Option) *Reporter {
	r := &Reporter{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Budget returns the longest time a report can take: every attempt running
// into the client timeout plus the delays between attempts.
func (r *Reporter) Budget() time.Duration {
	total := time.Duration(r.maxAttempts) * r.client.Timeout
	delay := r.baseDelay
	for i := 1; i < r.maxAttempts; i++ {
		total += delay
		delay *= 2
	}
	return total
}

// Report delivers the final result for s. It returns true on the first
// attempt answered with a status below 400 and false once every attempt has
// failed. Failures are logged, never returned.
func (r *Reporter) Report(ctx context.Context, s *domain.Session) bool {
	body, err := json.Marshal(NewPayload(s))
	if err != nil {
		r.logger.Error("Failed to encode final result", "session_id", s.ID, "error", err)
		return false
	}
	deliveryID := uuid.NewString()

	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.post(ctx, body, deliveryID)
		if err == nil {
			r.logger.Info("Final result delivered",
				"session_id", s.ID,
				"delivery_id", deliveryID,
				"attempt", attempt)
			return true
		}

		r.logger.Warn("Final result delivery failed",
			"session_id", s.ID,
			"delivery_id", deliveryID,
			"attempt", attempt,
			"error", err)

		if attempt == r.maxAttempts {
			break
		}
		if err := r.sleep(ctx, delay); err != nil {
			r.logger.Warn("Final result delivery abandoned", "session_id", s.ID, "error", err)
			return false
		}
		delay *= 2
	}

	r.logger.Error("Final result delivery exhausted retries",
		"session_id", s.ID,
		"delivery_id", deliveryID,
		"attempts", r.maxAttempts)
	return false
}

func (r *Reporter) post(ctx context.Context, body []byte, deliveryID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
