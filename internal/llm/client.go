package llm

import (
	"context"
)

// Image is one multi-part image input.
type Image struct {
	MIME string // "image/jpeg", "image/png"
	Data []byte
}

// Client is the thin adapter over a chat-completion API. No retries: a
// failed call surfaces to the orchestrator, which records it as a
// parse-failed suggestion.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateJSON pins the response to JSON and returns the raw string.
	// model overrides the client default when non-empty.
	GenerateJSON(ctx context.Context, prompt, model string, temperature float32) (string, error)
	// GenerateVision sends a prompt with image parts.
	GenerateVision(ctx context.Context, prompt string, images []Image) (string, error)
}
