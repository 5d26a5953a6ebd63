package port

import (
	"context"

	"ragquery/internal/domain"
)

// Retriever ranks stored chunks against a query.
type Retriever interface {
	// Retrieve returns at most limit chunks ordered by descending relevance.
	Retrieve(ctx context.Context, query string, limit int) ([]domain.Chunk, error)
}
