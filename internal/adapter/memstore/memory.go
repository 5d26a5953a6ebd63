package memstore

import (
	"fmt"
	"strconv"
	"sync"

	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// MemoryStore keeps chunks in insertion order behind a RWMutex. Readers get
// a copy, so a concurrent AddChunk is never visible mid-scan.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
	ids    map[string]struct{}
	rev    uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids: make(map[string]struct{}),
	}
}

func (s *MemoryStore) AddChunk(chunk domain.Chunk) error {
	if chunk.ChunkID == "" {
		return fmt.Errorf("chunk id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[chunk.ChunkID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateChunk, chunk.ChunkID)
	}
	chunk.RelevanceScore = 0
	s.chunks = append(s.chunks, chunk)
	s.ids[chunk.ChunkID] = struct{}{}
	s.rev++
	return nil
}

func (s *MemoryStore) AllChunks() ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]domain.Chunk, len(s.chunks))
	copy(chunks, s.chunks)
	return chunks, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.ids = make(map[string]struct{})
	s.rev++
	return nil
}

func (s *MemoryStore) Size() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Revision counts successful writes.
func (s *MemoryStore) Revision() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.FormatUint(s.rev, 10), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var (
	_ port.ChunkStore      = (*MemoryStore)(nil)
	_ port.RevisionedStore = (*MemoryStore)(nil)
)
