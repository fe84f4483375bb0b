package agent

import "github.com/ashureev/honeypot/internal/domain"

// Phase thresholds on the transcript length.
const (
	trustUntil      = 4
	contactExitFrom = 8
	elicitUntil     = 10
	extractUntil    = 16
)

// PhaseFor computes the engagement phase from the current counters. It has
// no memory of earlier phases; the precedence below is observable behavior.
func PhaseFor(totalMessages int, intel domain.ExtractedIntelligence) domain.Phase {
	switch {
	case totalMessages < trustUntil:
		return domain.PhaseTrust
	case intel.HasContactArtifacts():
		if totalMessages >= contactExitFrom {
			return domain.PhaseExit
		}
		return domain.PhaseExtract
	case totalMessages < elicitUntil:
		return domain.PhaseElicit
	case totalMessages < extractUntil:
		return domain.PhaseExtract
	default:
		return domain.PhaseExit
	}
}
