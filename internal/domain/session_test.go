package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	existing := ExtractedIntelligence{
		PhoneNumbers: []string{"9876543210", "9123456789"},
		UPIIDs:       []string{"rahul@upi"},
	}
	fresh := ExtractedIntelligence{
		PhoneNumbers: []string{"9123456789", "9000000001"},
		UPIIDs:       []string{"rahul@upi", "pay@ybl"},
	}

	merged := existing.Merge(fresh)

	assert.Equal(t, []string{"9876543210", "9123456789", "9000000001"}, merged.PhoneNumbers)
	assert.Equal(t, []string{"rahul@upi", "pay@ybl"}, merged.UPIIDs)
	assert.Empty(t, merged.BankAccounts)
	assert.NotNil(t, merged.BankAccounts)
}

func TestMergeNeverDropsItems(t *testing.T) {
	existing := ExtractedIntelligence{PhishingLinks: []string{"http://a.example"}}
	merged := existing.Merge(ExtractedIntelligence{})
	assert.Equal(t, []string{"http://a.example"}, merged.PhishingLinks)
}

func TestHasContactArtifacts(t *testing.T) {
	assert.False(t, ExtractedIntelligence{BankAccounts: []string{"123456789"}}.HasContactArtifacts())
	assert.True(t, ExtractedIntelligence{PhoneNumbers: []string{"9876543210"}}.HasContactArtifacts())
}

func TestSessionRaiseScoreIsMonotonic(t *testing.T) {
	s := NewSession("s1", time.Now(), nil)
	s.RaiseScore(60)
	s.RaiseScore(20)
	assert.Equal(t, 60, s.ScamScore)
	s.RaiseScore(85)
	assert.Equal(t, 85, s.ScamScore)
}

func TestSessionAdoptScamTypeOnce(t *testing.T) {
	s := NewSession("s1", time.Now(), nil)
	s.AdoptScamType("")
	assert.Empty(t, s.ScamType)
	s.AdoptScamType("bank_fraud")
	s.AdoptScamType("phishing")
	assert.Equal(t, "bank_fraud", s.ScamType)
}

func TestNewSessionSeedsPriorTranscript(t *testing.T) {
	now := time.Now()
	prior := []ConversationEntry{
		{Sender: SenderCounterparty, Text: "hello", Timestamp: now},
		{Sender: SenderHoneypot, Text: "hi", Timestamp: now},
	}
	s := NewSession("s1", now, prior)
	s.Append(ConversationEntry{Sender: SenderCounterparty, Text: "urgent", Timestamp: now})

	assert.Equal(t, 3, s.TotalMessages)
	assert.Len(t, s.RecentEntries(2), 2)
	assert.Equal(t, "urgent", s.RecentEntries(1)[0].Text)
	assert.Len(t, s.RecentEntries(10), 3)
}

func TestSessionJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSession("s1", now, nil)
	s.Append(ConversationEntry{Sender: SenderCounterparty, Text: "pay to rahul@upi", Timestamp: now})
	s.Append(ConversationEntry{Text: "unattributed", Timestamp: now})
	s.Intelligence.UPIIDs = []string{"rahul@upi"}
	s.PersonaMemory.RequestedInfo = []string{"upi"}
	s.Persona = "young_professional"
	s.Phase = PhaseTrust

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var got Session
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, s.Conversation, got.Conversation)
	assert.Equal(t, SenderUnknown, got.Conversation[1].Sender)
	assert.Equal(t, s.PersonaMemory, got.PersonaMemory)
	assert.Equal(t, s.Persona, got.Persona)
}

func TestSenderValid(t *testing.T) {
	assert.True(t, SenderCounterparty.Valid())
	assert.True(t, SenderUnknown.Valid())
	assert.False(t, Sender("bot").Valid())
}
