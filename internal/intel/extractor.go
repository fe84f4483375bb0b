// Package intel extracts actionable artifacts from a conversation transcript.
//
// Extraction always rescans the full transcript. Callers must union the
// result into previously stored intelligence; nothing here remembers earlier
// calls.
package intel

import (
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/lexicon"
)

const phoneDigits = 10

// Extractor pulls bank accounts, payment handles, links, phone numbers and
// fraud-indicator keywords out of a transcript.
type Extractor struct {
	keywords []string
}

// NewExtractor creates an extractor. A nil tables argument selects the
// embedded lexicon.
func NewExtractor(tables *lexicon.Tables) *Extractor {
	if tables == nil {
		tables = lexicon.Default()
	}
	return &Extractor{keywords: tables.SuspiciousKeywords}
}

// Extract scans every entry of conversation and returns deduplicated
// artifacts in first-seen order.
func (x *Extractor) Extract(conversation []domain.ConversationEntry) domain.ExtractedIntelligence {
	texts := make([]string, 0, len(conversation))
	for _, entry := range conversation {
		if entry.Text != "" {
			texts = append(texts, entry.Text)
		}
	}
	text := strings.Join(texts, "\n")

	var phones []string
	for _, m := range lexicon.PhonePattern.FindAllStringSubmatch(text, -1) {
		digits := m[1]
		if len(digits) > phoneDigits {
			digits = digits[len(digits)-phoneDigits:]
		}
		phones = append(phones, digits)
	}

	return domain.ExtractedIntelligence{
		BankAccounts:       domain.Union(lexicon.BankAccountPattern.FindAllString(text, -1)),
		UPIIDs:             domain.Union(lexicon.PaymentHandle.FindAllString(text, -1)),
		PhishingLinks:      domain.Union(lexicon.URLPattern.FindAllString(text, -1)),
		PhoneNumbers:       domain.Union(phones),
		SuspiciousKeywords: domain.Union(lexicon.Hits(strings.ToLower(text), x.keywords)),
	}
}
