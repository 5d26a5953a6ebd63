package port

import "ragquery/internal/domain"

// ChunkStore holds the knowledge base chunks.
type ChunkStore interface {
	// AddChunk stores a chunk. Returns domain.ErrDuplicateChunk when the
	// chunk id is already present.
	AddChunk(chunk domain.Chunk) error

	// AllChunks returns an independent snapshot of every chunk in insertion
	// order. Concurrent writes are never observed partially.
	AllChunks() ([]domain.Chunk, error)

	Clear() error

	Size() (int, error)

	Close() error
}

// BatchStore is implemented by stores that add many chunks in one
// transaction. Ids already present, or repeated within the batch, are skipped
// and returned. A chunk without an id fails the whole batch.
type BatchStore interface {
	AddChunks(batch []domain.Chunk) (skipped []string, err error)
}

// RevisionedStore is implemented by stores that report a revision token. The
// token changes whenever the stored chunks change, including writes made by
// another process sharing the same file.
type RevisionedStore interface {
	Revision() (string, error)
}
