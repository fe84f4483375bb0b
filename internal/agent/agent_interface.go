package agent

import "context"

// Generator produces the honeypot's reply text. It is an optional
// capability; errors and empty replies make the agent fall back to canned
// replies.
type Generator interface {
	Generate(ctx context.Context, system string, prior []Turn, latest string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, system string, prior []Turn, latest string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, system string, prior []Turn, latest string) (string, error) {
	return f(ctx, system, prior, latest)
}
