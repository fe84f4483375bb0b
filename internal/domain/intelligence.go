package domain

// ExtractedIntelligence holds the artifacts harvested from a transcript.
// Each list is deduplicated and kept in first-seen order.
type ExtractedIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// HasContactArtifacts reports whether any payment handle, link or phone
// number has been captured.
func (i ExtractedIntelligence) HasContactArtifacts() bool {
	return len(i.UPIIDs) > 0 || len(i.PhishingLinks) > 0 || len(i.PhoneNumbers) > 0
}

// Merge returns the per-field union of i and other. Items already in i keep
// their position; new items from other are appended in their order.
func (i ExtractedIntelligence) Merge(other ExtractedIntelligence) ExtractedIntelligence {
	return ExtractedIntelligence{
		BankAccounts:       Union(i.BankAccounts, other.BankAccounts),
		UPIIDs:             Union(i.UPIIDs, other.UPIIDs),
		PhishingLinks:      Union(i.PhishingLinks, other.PhishingLinks),
		PhoneNumbers:       Union(i.PhoneNumbers, other.PhoneNumbers),
		SuspiciousKeywords: Union(i.SuspiciousKeywords, other.SuspiciousKeywords),
	}
}

// Union concatenates the given lists, dropping empty strings and duplicates.
// The result is never nil so it serializes as an empty JSON array.
func Union(lists ...[]string) []string {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, v := range l {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
