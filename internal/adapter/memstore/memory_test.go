package memstore

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"ragquery/internal/domain"
)

func TestMemoryStore_AddAndSnapshot(t *testing.T) {
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		c := domain.Chunk{ChunkID: fmt.Sprintf("c%d", i), DocumentID: "d1", Text: "text"}
		if err := s.AddChunk(c); err != nil {
			t.Fatalf("AddChunk: %v", err)
		}
	}

	chunks, err := s.AllChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkID != fmt.Sprintf("c%d", i) {
			t.Errorf("expected insertion order, got %s at %d", c.ChunkID, i)
		}
	}

	// mutating the snapshot must not leak into the store
	chunks[0].Text = "changed"
	again, _ := s.AllChunks()
	if again[0].Text != "text" {
		t.Error("snapshot shares memory with the store")
	}
}

func TestMemoryStore_DuplicateRejected(t *testing.T) {
	s := NewMemoryStore()
	c := domain.Chunk{ChunkID: "c1", DocumentID: "d1"}

	if err := s.AddChunk(c); err != nil {
		t.Fatal(err)
	}
	err := s.AddChunk(c)
	if !errors.Is(err, domain.ErrDuplicateChunk) {
		t.Fatalf("expected ErrDuplicateChunk, got %v", err)
	}
	if n, _ := s.Size(); n != 1 {
		t.Errorf("expected size 1, got %d", n)
	}
}

func TestMemoryStore_EmptyIDRejected(t *testing.T) {
	if err := NewMemoryStore().AddChunk(domain.Chunk{}); err == nil {
		t.Error("expected error for empty chunk id")
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	_ = s.AddChunk(domain.Chunk{ChunkID: "c1"})

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Size(); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}
	if err := s.AddChunk(domain.Chunk{ChunkID: "c1"}); err != nil {
		t.Errorf("expected re-add after clear to succeed, got %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.AddChunk(domain.Chunk{ChunkID: fmt.Sprintf("w%d-%d", w, i)})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				chunks, _ := s.AllChunks()
				for _, c := range chunks {
					if c.ChunkID == "" {
						t.Error("torn read")
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if n, _ := s.Size(); n != 400 {
		t.Errorf("expected 400 chunks, got %d", n)
	}
}

func TestMemoryStore_Revision(t *testing.T) {
	s := NewMemoryStore()
	r0, _ := s.Revision()

	_ = s.AddChunk(domain.Chunk{ChunkID: "c1"})
	r1, _ := s.Revision()
	if r1 == r0 {
		t.Error("expected AddChunk to change revision")
	}

	_ = s.AddChunk(domain.Chunk{ChunkID: "c1"})
	if r, _ := s.Revision(); r != r1 {
		t.Error("rejected duplicate must not change revision")
	}

	_ = s.Clear()
	if r, _ := s.Revision(); r == r1 || r == r0 {
		t.Errorf("expected Clear to move revision, got %q", r)
	}
}
