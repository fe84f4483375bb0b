package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/honeypot"
)

// Timestamp accepts RFC 3339 strings or Unix epoch numbers. Numbers larger
// than 1e11 are read as milliseconds.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = parsed
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if n > 1e11 {
		t.Time = time.UnixMilli(int64(n)).UTC()
		return nil
	}
	sec, frac := math.Modf(n)
	t.Time = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

type messageDTO struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp Timestamp `json:"timestamp"`
}

type entryDTO struct {
	Sender    *string   `json:"sender"`
	Text      string    `json:"text"`
	Timestamp Timestamp `json:"timestamp"`
}

type metadataDTO struct {
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

// MessageRequest is the body of POST /api/message. The session id may be
// sent as "sessionId" or "sessionld".
type MessageRequest struct {
	SessionID           string       `json:"sessionId"`
	SessionIDAlias      string       `json:"sessionld"`
	Message             *messageDTO  `json:"message"`
	ConversationHistory []entryDTO   `json:"conversationHistory"`
	Metadata            *metadataDTO `json:"metadata"`
}

var (
	errMissingSessionID = errors.New("sessionId is required")
	errMissingMessage   = errors.New("message is required")
	errMissingText      = errors.New("message.text is required")
	errMissingTimestamp = errors.New("message.timestamp is required")
)

// toMessage validates the request and converts it for the orchestrator.
func (req *MessageRequest) toMessage() (honeypot.Message, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = strings.TrimSpace(req.SessionIDAlias)
	}
	if id == "" {
		return honeypot.Message{}, errMissingSessionID
	}
	if req.Message == nil {
		return honeypot.Message{}, errMissingMessage
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		return honeypot.Message{}, errMissingText
	}
	if req.Message.Timestamp.IsZero() {
		return honeypot.Message{}, errMissingTimestamp
	}
	sender := domain.Sender(req.Message.Sender)
	if sender == domain.SenderUnknown || !sender.Valid() {
		return honeypot.Message{}, fmt.Errorf("message.sender must be %q or %q", domain.SenderCounterparty, domain.SenderHoneypot)
	}

	msg := honeypot.Message{
		SessionID: id,
		Entry: domain.ConversationEntry{
			Sender:    sender,
			Text:      req.Message.Text,
			Timestamp: req.Message.Timestamp.Time,
		},
	}

	for i, e := range req.ConversationHistory {
		var s domain.Sender
		if e.Sender != nil {
			s = domain.Sender(*e.Sender)
			if !s.Valid() || s == domain.SenderUnknown {
				return honeypot.Message{}, fmt.Errorf("conversationHistory[%d].sender is invalid", i)
			}
		}
		msg.History = append(msg.History, domain.ConversationEntry{
			Sender:    s,
			Text:      e.Text,
			Timestamp: e.Timestamp.Time,
		})
	}

	if req.Metadata != nil {
		msg.Metadata = honeypot.Metadata{
			Channel:  req.Metadata.Channel,
			Language: req.Metadata.Language,
			Locale:   req.Metadata.Locale,
		}
	}
	return msg, nil
}

// EngagementMetrics describes the length of an engagement.
type EngagementMetrics struct {
	EngagementDurationSeconds int `json:"engagementDurationSeconds"`
	TotalMessagesExchanged    int `json:"totalMessagesExchanged"`
}

// MessageResponse is the body returned by POST /api/message.
type MessageResponse struct {
	Status                string                       `json:"status"`
	ScamDetected          bool                         `json:"scamDetected"`
	EngagementMetrics     EngagementMetrics            `json:"engagementMetrics"`
	ExtractedIntelligence domain.ExtractedIntelligence `json:"extractedIntelligence"`
	AgentNotes            string                       `json:"agentNotes"`
	AgentResponse         *string                      `json:"agentResponse"`
}

func newMessageResponse(out *honeypot.Outcome) MessageResponse {
	resp := MessageResponse{
		Status:       "success",
		ScamDetected: out.ScamDetected,
		EngagementMetrics: EngagementMetrics{
			EngagementDurationSeconds: int(out.EngagementDuration.Seconds()),
			TotalMessagesExchanged:    out.TotalMessages,
		},
		ExtractedIntelligence: out.Intelligence.Merge(domain.ExtractedIntelligence{}),
		AgentNotes:            out.AgentNotes,
	}
	if out.AgentResponse != "" {
		reply := out.AgentResponse
		resp.AgentResponse = &reply
	}
	return resp
}

// SessionResponse is the body returned by GET /api/session/{sessionID}.
type SessionResponse struct {
	SessionID              string `json:"sessionId"`
	ScamDetected           bool   `json:"scamDetected"`
	TotalMessagesExchanged int    `json:"totalMessagesExchanged"`
	Phase                  string `json:"phase"`
	Completed              bool   `json:"completed"`
}
