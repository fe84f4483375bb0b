package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/honeypot/internal/domain"
)

func entries(texts ...string) []domain.ConversationEntry {
	out := make([]domain.ConversationEntry, 0, len(texts))
	for _, text := range texts {
		out = append(out, domain.ConversationEntry{
			Sender:    domain.SenderCounterparty,
			Text:      text,
			Timestamp: time.Now(),
		})
	}
	return out
}

func TestExtractPaymentPhoneAndLink(t *testing.T) {
	x := NewExtractor(nil)

	got := x.Extract(entries("Send 500 to rahul@upi now, call 9876543210 or visit http://bit.ly/x"))

	assert.Equal(t, []string{"rahul@upi"}, got.UPIIDs)
	assert.Equal(t, []string{"9876543210"}, got.PhoneNumbers)
	assert.Equal(t, []string{"http://bit.ly/x"}, got.PhishingLinks)
}

func TestExtractPhoneWithCountryCode(t *testing.T) {
	x := NewExtractor(nil)

	got := x.Extract(entries("whatsapp +91 9123456789 or +91-9000000001"))

	assert.Equal(t, []string{"9123456789", "9000000001"}, got.PhoneNumbers)
}

func TestExtractBankAccountAndKeywords(t *testing.T) {
	x := NewExtractor(nil)

	got := x.Extract(entries(
		"URGENT: account blocked. Transfer to 123456789012 and share OTP",
		"Click https://secure-bank.example/login to verify now",
	))

	assert.Contains(t, got.BankAccounts, "123456789012")
	assert.Equal(t, []string{"https://secure-bank.example/login"}, got.PhishingLinks)
	assert.Equal(t, []string{"urgent", "verify now", "account blocked", "otp", "click"}, got.SuspiciousKeywords)
}

func TestExtractDeduplicatesAcrossEntries(t *testing.T) {
	x := NewExtractor(nil)

	got := x.Extract(entries(
		"pay rahul@upi",
		"again: rahul@upi or priya.s@okaxis",
		"",
	))

	assert.Equal(t, []string{"rahul@upi", "priya.s@okaxis"}, got.UPIIDs)
}

func TestExtractEmptyTranscript(t *testing.T) {
	x := NewExtractor(nil)

	got := x.Extract(nil)

	assert.Empty(t, got.BankAccounts)
	assert.Empty(t, got.UPIIDs)
	assert.Empty(t, got.PhishingLinks)
	assert.Empty(t, got.PhoneNumbers)
	assert.Empty(t, got.SuspiciousKeywords)
	assert.NotNil(t, got.PhoneNumbers)
}

func TestExtractRescansWholeTranscript(t *testing.T) {
	x := NewExtractor(nil)
	transcript := entries("call 9876543210")

	first := x.Extract(transcript)
	transcript = append(transcript, entries("visit http://bit.ly/y")...)
	second := x.Extract(transcript)

	assert.Equal(t, first.PhoneNumbers, second.PhoneNumbers)
	assert.Equal(t, []string{"http://bit.ly/y"}, second.PhishingLinks)
}
