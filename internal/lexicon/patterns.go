package lexicon

import "regexp"

// Artifact patterns shared by the score engine and the extractor.
var (
	URLPattern         = regexp.MustCompile(`(?i)https?://\S+`)
	PaymentHandle      = regexp.MustCompile(`(?i)[a-z0-9._-]{2,}@[a-z]{2,}`)
	PhonePattern       = regexp.MustCompile(`(?:\+?\d{1,3})?[\s-]?(\d{10})`)
	BankAccountPattern = regexp.MustCompile(`\b\d{9,18}\b`)
)
