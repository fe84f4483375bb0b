// Package domain contains core domain types for the honeypot.
package domain

import (
	"time"
)

// Sender identifies who authored a conversation entry.
type Sender string

const (
	// SenderCounterparty is the suspected fraud actor.
	SenderCounterparty Sender = "scammer"
	// SenderHoneypot is the simulated victim.
	SenderHoneypot Sender = "user"
	// SenderUnknown marks prior transcript entries without attribution.
	SenderUnknown Sender = ""
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	switch s {
	case SenderCounterparty, SenderHoneypot, SenderUnknown:
		return true
	}
	return false
}

// Phase is the current stage of the simulated engagement.
type Phase string

const (
	PhaseTrust   Phase = "trust"
	PhaseElicit  Phase = "elicit"
	PhaseExtract Phase = "extract"
	PhaseExit    Phase = "exit"
)

// ConversationEntry is a single transcript line. Entries are never edited
// once appended.
type ConversationEntry struct {
	Sender    Sender    `json:"sender,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PersonaMemory accumulates what the counterparty asked for and claimed.
// All three lists are append-only and deduplicated by exact match.
type PersonaMemory struct {
	RequestedInfo []string `json:"requested_info"`
	Channels      []string `json:"channels"`
	ScammerClaims []string `json:"scammer_claims"`
}

// Session holds the full state of one honeypot engagement.
type Session struct {
	ID            string                `json:"session_id"`
	CreatedAt     time.Time             `json:"created_at"`
	LastUpdatedAt time.Time             `json:"last_updated_at"`
	TotalMessages int                   `json:"total_messages"`
	ScamDetected  bool                  `json:"scam_detected"`
	ScamScore     int                   `json:"scam_score"`
	ScamType      string                `json:"scam_type,omitempty"`
	Persona       string                `json:"persona,omitempty"`
	Phase         Phase                 `json:"phase,omitempty"`
	Conversation  []ConversationEntry   `json:"conversation"`
	Intelligence  ExtractedIntelligence `json:"intelligence"`
	PersonaMemory PersonaMemory         `json:"persona_memory"`
	Completed     bool                  `json:"completed"`
	AgentNotes    string                `json:"agent_notes"`
}

// NewSession creates an empty session seeded with an optional prior transcript.
func NewSession(id string, now time.Time, prior []ConversationEntry) *Session {
	s := &Session{
		ID:            id,
		CreatedAt:     now,
		LastUpdatedAt: now,
		Conversation:  make([]ConversationEntry, 0, len(prior)+2),
	}
	s.Conversation = append(s.Conversation, prior...)
	s.TotalMessages = len(s.Conversation)
	return s
}

// Append adds an entry to the transcript and keeps TotalMessages in sync.
func (s *Session) Append(entry ConversationEntry) {
	s.Conversation = append(s.Conversation, entry)
	s.TotalMessages = len(s.Conversation)
}

// RaiseScore applies a turn score without ever lowering the session score.
func (s *Session) RaiseScore(score int) {
	if score > s.ScamScore {
		s.ScamScore = score
	}
}

// AdoptScamType records the category only if none has been set yet.
func (s *Session) AdoptScamType(scamType string) {
	if s.ScamType == "" && scamType != "" {
		s.ScamType = scamType
	}
}

// RecentEntries returns the last n transcript entries.
func (s *Session) RecentEntries(n int) []ConversationEntry {
	if n >= len(s.Conversation) {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}

// EngagementDuration returns the time elapsed since the session was created.
func (s *Session) EngagementDuration(now time.Time) time.Duration {
	d := now.Sub(s.CreatedAt)
	if d < 0 {
		return 0
	}
	return d
}
