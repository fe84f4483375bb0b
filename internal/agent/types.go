// Package agent implements the persona-driven simulated victim: persona
// assignment, engagement phase, persona memory and reply generation.
package agent

// Role is the speaker of a turn as seen by the text generator.
type Role string

const (
	// RoleUser is the counterparty, the party the generator replies to.
	RoleUser Role = "user"
	// RoleAssistant is the honeypot itself.
	RoleAssistant Role = "assistant"
)

// Turn is a prior transcript line handed to the generator.
type Turn struct {
	Role    Role
	Content string
}

// ReplySource tells where a reply came from.
type ReplySource string

const (
	// ReplySourceLLM indicates a model-generated reply.
	ReplySourceLLM ReplySource = "llm"
	// ReplySourceFallback indicates a canned reply from the phase pool.
	ReplySourceFallback ReplySource = "fallback"
)

// Reply is the honeypot's next message.
type Reply struct {
	Text   string
	Source ReplySource
}
