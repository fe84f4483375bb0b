// Package honeypot runs one inbound message through detection, intelligence
// extraction and engagement, and keeps the session state up to date.
package honeypot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/honeypot/internal/agent"
	"github.com/ashureev/honeypot/internal/detection"
	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/store"
)

var (
	// ErrStoreUnavailable wraps any session store failure. Callers should
	// treat it as retryable.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionNotFound is returned by Inspect for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("orchestrator is shutting down")
)

// Defaults for Config.
const (
	DefaultScoreThreshold = 70
	DefaultMaxMessages    = 25

	// DefaultReportTimeout bounds a report when the reporter cannot state
	// its own budget. It covers three 5s attempts with 1s and 2s backoff.
	DefaultReportTimeout = 20 * time.Second

	// exitMinMessages is the transcript length at which an engaged session in
	// the exit phase is considered finished.
	exitMinMessages = 8
)

// Scorer rates one message.
type Scorer interface {
	Score(ctx context.Context, text string) detection.Result
}

// Extractor harvests artifacts from a whole transcript.
type Extractor interface {
	Extract(conversation []domain.ConversationEntry) domain.ExtractedIntelligence
}

// Engager produces the honeypot's reply and updates persona state.
type Engager interface {
	Engage(ctx context.Context, s *domain.Session, latest domain.ConversationEntry) agent.Reply
}

// Reporter delivers the final result of a completed session.
type Reporter interface {
	Report(ctx context.Context, s *domain.Session) bool
}

// Config holds orchestration thresholds.
type Config struct {
	ScoreThreshold int
	MaxMessages    int
	// ReportTimeout bounds one background report. Zero uses the reporter's
	// Budget when it has one, else DefaultReportTimeout.
	ReportTimeout time.Duration
	// SessionLocking serializes concurrent messages for the same session
	// within this process. Without it the last write wins.
	SessionLocking bool
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: DefaultScoreThreshold,
		MaxMessages:    DefaultMaxMessages,
	}
}

// Orchestrator composes the scoring, extraction, engagement, storage and
// reporting components. It is the only caller of each of them.
type Orchestrator struct {
	store     store.SessionStore
	scorer    Scorer
	extractor Extractor
	engager   Engager
	reporter  Reporter
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	locks *sessionLocks

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	reports  sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an orchestrator. reporter may be nil, in which case completed
// sessions are not reported anywhere.
func New(st store.SessionStore, scorer Scorer, extractor Extractor, engager Engager, reporter Reporter, cfg Config, opts ...Option) *Orchestrator {
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = DefaultScoreThreshold
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = DefaultReportTimeout
		if b, ok := reporter.(interface{ Budget() time.Duration }); ok {
			cfg.ReportTimeout = b.Budget() + time.Second
		}
	}
	o := &Orchestrator{
		store:     st,
		scorer:    scorer,
		extractor: extractor,
		engager:   engager,
		reporter:  reporter,
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
	if cfg.SessionLocking {
		o.locks = newSessionLocks()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleMessage processes one inbound message: load or create the session,
// append the message, score it, merge intelligence, engage when a scam has
// been detected, persist, and report once the session completes.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg Message) (*Outcome, error) {
	if msg.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	if !o.begin() {
		return nil, ErrClosed
	}
	defer o.inflight.Done()
	if o.locks != nil {
		unlock := o.locks.lock(msg.SessionID)
		defer unlock()
	}

	now := o.now()
	s, err := o.store.Get(ctx, msg.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStoreUnavailable, msg.SessionID, err)
	}
	if s == nil {
		s = domain.NewSession(msg.SessionID, now, msg.History)
		o.logger.Info("Session created",
			"session_id", s.ID,
			"seeded_entries", len(msg.History),
			"channel", msg.Metadata.Channel,
			"language", msg.Metadata.Language,
			"locale", msg.Metadata.Locale)
	}
	wasCompleted := s.Completed

	latest := msg.Entry
	if latest.Timestamp.IsZero() {
		latest.Timestamp = now
	}
	s.Append(latest)

	result := o.scorer.Score(ctx, latest.Text)
	s.RaiseScore(result.Score)
	s.AdoptScamType(result.ScamType)
	if s.ScamScore >= o.cfg.ScoreThreshold {
		s.ScamDetected = true
	}

	s.Intelligence = s.Intelligence.Merge(o.extractor.Extract(s.Conversation))
	s.Phase = agent.PhaseFor(s.TotalMessages, s.Intelligence)

	var reply string
	if s.ScamDetected {
		r := o.engager.Engage(ctx, s, latest)
		reply = r.Text
		s.Append(domain.ConversationEntry{
			Sender:    domain.SenderHoneypot,
			Text:      reply,
			Timestamp: now,
		})
		s.AgentNotes = agentNotes(s)
		o.logger.Debug("Honeypot engaged",
			"session_id", s.ID,
			"phase", s.Phase,
			"persona", s.Persona,
			"reply_source", r.Source)
	}

	s.LastUpdatedAt = now
	s.Completed = o.shouldComplete(s)

	if err := o.store.Set(ctx, s); err != nil {
		return nil, fmt.Errorf("%w: save %s: %v", ErrStoreUnavailable, s.ID, err)
	}

	o.logger.Info("Message processed",
		"session_id", s.ID,
		"score", s.ScamScore,
		"turn_score", result.Score,
		"scam_detected", s.ScamDetected,
		"scam_type", s.ScamType,
		"phase", s.Phase,
		"total_messages", s.TotalMessages,
		"completed", s.Completed)

	if !wasCompleted && s.Completed && s.ScamDetected {
		o.report(ctx, s)
	}

	return &Outcome{
		SessionID:          s.ID,
		ScamDetected:       s.ScamDetected,
		EngagementDuration: s.EngagementDuration(now),
		TotalMessages:      s.TotalMessages,
		Intelligence:       s.Intelligence,
		AgentNotes:         s.AgentNotes,
		AgentResponse:      reply,
		Completed:          s.Completed,
	}, nil
}

// shouldComplete applies the completion rule. The phase was computed before
// the reply was appended while the message count includes it.
func (o *Orchestrator) shouldComplete(s *domain.Session) bool {
	switch {
	case s.Completed:
		return true
	case s.TotalMessages >= o.cfg.MaxMessages:
		return true
	case s.ScamDetected && s.Phase == domain.PhaseExit && s.TotalMessages >= exitMinMessages:
		return true
	}
	return false
}

// report delivers the final result in the background so the caller is not
// held up by callback retries. The request context's cancellation is not
// inherited.
func (o *Orchestrator) report(ctx context.Context, s *domain.Session) {
	if o.reporter == nil {
		o.logger.Debug("No reporter configured, skipping final result", "session_id", s.ID)
		return
	}

	o.reports.Add(1)
	go func() {
		defer o.reports.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ReportTimeout)
		defer cancel()

		if !o.reporter.Report(rctx, s) {
			o.logger.Warn("Final result was not delivered", "session_id", s.ID)
		}
	}()
}

// Wait blocks until every in-flight report has finished.
func (o *Orchestrator) Wait() {
	o.reports.Wait()
}

// Close stops accepting work, then waits for in-flight operations and the
// reports they started. The session store can be closed after it returns.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.inflight.Wait()
	o.reports.Wait()
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.inflight.Add(1)
	return true
}

// Inspect returns a read-only view of a session.
func (o *Orchestrator) Inspect(ctx context.Context, id string) (*Snapshot, error) {
	if !o.begin() {
		return nil, ErrClosed
	}
	defer o.inflight.Done()
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStoreUnavailable, id, err)
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return &Snapshot{
		SessionID:     s.ID,
		ScamDetected:  s.ScamDetected,
		TotalMessages: s.TotalMessages,
		Phase:         s.Phase,
		Completed:     s.Completed,
	}, nil
}

// Delete removes a session.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if !o.begin() {
		return ErrClosed
	}
	defer o.inflight.Done()
	if err := o.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStoreUnavailable, id, err)
	}
	o.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Ping checks the session store.
func (o *Orchestrator) Ping(ctx context.Context) error {
	if err := o.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
