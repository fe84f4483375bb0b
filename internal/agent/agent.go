package agent

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/lexicon"
)

// Agent plays the simulated victim for engaged sessions.
type Agent struct {
	tables    *lexicon.Tables
	generator Generator
	logger    *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Agent.
type Option func(*Agent)

// WithGenerator sets the text-generation capability. Without one the agent
// answers from the canned phase pools.
func WithGenerator(g Generator) Option {
	return func(a *Agent) { a.generator = g }
}

// WithRandSource makes fallback reply selection reproducible.
func WithRandSource(src rand.Source) Option {
	return func(a *Agent) { a.rng = rand.New(src) }
}

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an agent. A nil tables argument selects the embedded lexicon.
func New(tables *lexicon.Tables, opts ...Option) *Agent {
	if tables == nil {
		tables = lexicon.Default()
	}
	now := uint64(time.Now().UnixNano())
	a := &Agent{
		tables: tables,
		logger: slog.Default(),
		rng:    rand.New(rand.NewPCG(now, now>>1)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PersonaFor maps a scam category to a persona key.
func (a *Agent) PersonaFor(scamType string) string {
	if key, ok := a.tables.PersonaByScamType[scamType]; ok {
		return key
	}
	return a.tables.DefaultPersona
}

// Persona returns the profile for a persona key.
func (a *Agent) Persona(key string) (lexicon.Persona, bool) {
	p, ok := a.tables.Personas[key]
	return p, ok
}

// Engage updates the session's persona, memory and phase, then produces the
// honeypot's reply to latest. The persona is assigned only if the session has
// none yet. Engage does not append the reply to the transcript.
func (a *Agent) Engage(ctx context.Context, s *domain.Session, latest domain.ConversationEntry) Reply {
	if s.Persona == "" {
		s.Persona = a.PersonaFor(s.ScamType)
	}
	updateMemory(s, a.tables)
	s.Phase = PhaseFor(s.TotalMessages, s.Intelligence)

	if a.generator == nil {
		return a.fallback(s.Phase)
	}

	persona, ok := a.Persona(s.Persona)
	if !ok {
		persona = a.tables.Personas[a.tables.DefaultPersona]
	}
	text, err := a.generator.Generate(ctx, systemPrompt(persona, s.Phase, s.PersonaMemory), priorTurns(s.Conversation), latest.Text)
	if err != nil {
		a.logger.Warn("Reply generation failed, using fallback", "session_id", s.ID, "phase", s.Phase, "error", err)
		return a.fallback(s.Phase)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		a.logger.Debug("Reply generation returned empty text, using fallback", "session_id", s.ID)
		return a.fallback(s.Phase)
	}
	return Reply{Text: text, Source: ReplySourceLLM}
}

func (a *Agent) fallback(phase domain.Phase) Reply {
	pool := a.tables.FallbackReplies[string(phase)]
	if len(pool) == 0 {
		pool = a.tables.FallbackReplies[string(domain.PhaseTrust)]
	}
	a.rngMu.Lock()
	i := a.rng.IntN(len(pool))
	a.rngMu.Unlock()
	return Reply{Text: pool[i], Source: ReplySourceFallback}
}
