package honeypot

import (
	"fmt"
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
)

// agentNotes summarises what the counterparty has tried so far.
func agentNotes(s *domain.Session) string {
	var b strings.Builder
	if s.ScamType != "" {
		fmt.Fprintf(&b, "Suspected %s. ", s.ScamType)
	}
	b.WriteString("Scammer used urgency or sensitive info request patterns.")

	if len(s.PersonaMemory.RequestedInfo) > 0 {
		fmt.Fprintf(&b, " Requested: %s.", strings.Join(s.PersonaMemory.RequestedInfo, ", "))
	}
	if len(s.PersonaMemory.Channels) > 0 {
		fmt.Fprintf(&b, " Channels: %s.", strings.Join(s.PersonaMemory.Channels, ", "))
	}
	if kw := s.Intelligence.SuspiciousKeywords; len(kw) > 0 {
		fmt.Fprintf(&b, " Keywords: %s.", strings.Join(kw, ", "))
	}
	return b.String()
}
