package port

import "ragquery/internal/domain"

// Chunker splits a loaded document into chunks.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}
