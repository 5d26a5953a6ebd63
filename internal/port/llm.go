package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// GenerateWithSystem generates text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// GenerateOptions tunes a single generation call. Zero values use the
// provider defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}
