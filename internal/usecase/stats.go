package usecase

import (
	"fmt"

	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// ComputeStats counts the chunks in store and the distinct documents they
// belong to.
func ComputeStats(store port.ChunkStore) (domain.StoreStats, error) {
	chunks, err := store.AllChunks()
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("failed to read chunks: %w", err)
	}

	docs := make(map[string]struct{})
	for _, c := range chunks {
		docs[c.DocumentID] = struct{}{}
	}

	return domain.StoreStats{
		TotalChunks:    len(chunks),
		TotalDocuments: len(docs),
	}, nil
}
