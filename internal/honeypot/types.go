package honeypot

import (
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

// Metadata describes where an inbound message came from. It is logged but
// does not influence scoring.
type Metadata struct {
	Channel  string
	Language string
	Locale   string
}

// Message is one inbound counterparty message.
type Message struct {
	SessionID string
	Entry     domain.ConversationEntry
	// History seeds a session that does not exist yet and is ignored otherwise.
	History  []domain.ConversationEntry
	Metadata Metadata
}

// Outcome is what the caller learns after a message has been processed.
type Outcome struct {
	SessionID          string
	ScamDetected       bool
	EngagementDuration time.Duration
	TotalMessages      int
	Intelligence       domain.ExtractedIntelligence
	AgentNotes         string
	// AgentResponse is empty when the honeypot did not engage on this turn.
	AgentResponse string
	Completed     bool
}

// Snapshot is the read-only projection returned by Inspect.
type Snapshot struct {
	SessionID     string
	ScamDetected  bool
	TotalMessages int
	Phase         domain.Phase
	Completed     bool
}
