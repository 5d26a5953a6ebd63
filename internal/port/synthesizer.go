package port

import (
	"context"

	"ragquery/internal/domain"
)

// Synthesizer turns ranked evidence into a cited answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, chunks []domain.Chunk, opts GenerateOptions) (domain.SynthesisResult, error)
}
