package ai

import "context"

// Request is a single chat turn: a system instruction plus the user prompt.
type Request struct {
	System string
	User   string
	// MaxTokens overrides the client default when > 0.
	MaxTokens int
}

// Client sends a prompt to a completion API and returns the raw reply text.
// Implementations return *TransientError or *FatalError so callers can decide on retries.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
