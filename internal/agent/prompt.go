package agent

import (
	"fmt"
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/lexicon"
)

const (
	maxPromptClaims = 2
	maxPriorTurns   = 12
)

func systemPrompt(p lexicon.Persona, phase domain.Phase, mem domain.PersonaMemory) string {
	var b strings.Builder
	b.WriteString("You are roleplaying as a possible victim of a scam attempt. ")
	b.WriteString("Never reveal you are an AI, an automated system or a honeypot, and never hint that you see through the scam. ")
	b.WriteString("Be human and realistic. Never provide real sensitive information.\n")
	fmt.Fprintf(&b, "Persona: %s, age %d, %s. Style: %s.\n", p.Name, p.Age, p.Background, p.Style)
	fmt.Fprintf(&b, "Phase: %s. %s ", phase, phaseGoal(phase))
	b.WriteString("Keep replies short and natural. Output only the message text.")

	var memory []string
	if len(mem.RequestedInfo) > 0 {
		memory = append(memory, "Scammer requested: "+strings.Join(mem.RequestedInfo, ", ")+".")
	}
	if len(mem.Channels) > 0 {
		memory = append(memory, "Preferred channels mentioned: "+strings.Join(mem.Channels, ", ")+".")
	}
	if len(mem.ScammerClaims) > 0 {
		claims := mem.ScammerClaims
		if len(claims) > maxPromptClaims {
			claims = claims[:maxPromptClaims]
		}
		memory = append(memory, "Scammer claims: "+strings.Join(claims, " | ")+".")
	}
	if len(memory) > 0 {
		b.WriteString("\nMemory: ")
		b.WriteString(strings.Join(memory, " "))
	}
	return b.String()
}

func phaseGoal(phase domain.Phase) string {
	switch phase {
	case domain.PhaseTrust:
		return "Sound worried but cooperative and ask what is going on."
	case domain.PhaseElicit:
		return "Ask for official details, names and reference numbers."
	case domain.PhaseExtract:
		return "Ask exactly where to pay or verify: account, UPI ID, link or callback number."
	default:
		return "Politely stall and wind the conversation down."
	}
}

// priorTurns maps the entries before the latest message to generator turns.
func priorTurns(conversation []domain.ConversationEntry) []Turn {
	if len(conversation) == 0 {
		return nil
	}
	prior := conversation[:len(conversation)-1]
	if len(prior) > maxPriorTurns {
		prior = prior[len(prior)-maxPriorTurns:]
	}
	turns := make([]Turn, 0, len(prior))
	for _, entry := range prior {
		role := RoleAssistant
		if entry.Sender == domain.SenderCounterparty {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Content: entry.Text})
	}
	return turns
}
