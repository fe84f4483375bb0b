package agent

import (
	"slices"
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/lexicon"
)

const (
	memoryWindow   = 10
	maxClaimLength = 120
)

// updateMemory folds the counterparty messages among the last memoryWindow
// transcript entries into the session's persona memory. Existing items are
// never removed.
func updateMemory(s *domain.Session, tables *lexicon.Tables) {
	mem := &s.PersonaMemory
	for _, entry := range s.RecentEntries(memoryWindow) {
		if entry.Sender != domain.SenderCounterparty {
			continue
		}
		text := strings.ToLower(entry.Text)
		for _, cue := range lexicon.Hits(text, tables.RequestCues) {
			mem.RequestedInfo = appendUnique(mem.RequestedInfo, cue)
		}
		for _, channel := range lexicon.Hits(text, tables.ChannelHints) {
			mem.Channels = appendUnique(mem.Channels, channel)
		}
		if lexicon.ContainsAny(text, tables.ClaimMarkers) {
			mem.ScammerClaims = appendUnique(mem.ScammerClaims, truncateRunes(text, maxClaimLength))
		}
	}
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
