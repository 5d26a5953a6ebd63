package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ragquery/internal/adapter/memstore"
	"ragquery/internal/adapter/retriever"
	"ragquery/internal/adapter/store"
	"ragquery/internal/domain"
	"ragquery/internal/logging"
)

type countingRetriever struct {
	calls   int
	results []domain.Chunk
	err     error
}

func (r *countingRetriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Chunk, error) {
	r.calls++
	return r.results, r.err
}

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	results := []domain.Chunk{{ChunkID: "c1", RelevanceScore: 0.9}}

	if _, hit := c.Get("deployment", 5); hit {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("deployment", 5, c.Generation(), results)

	got, hit := c.Get("  DEPLOYMENT ", 5)
	if !hit {
		t.Fatal("expected normalised query to hit")
	}
	if len(got) != 1 || got[0].ChunkID != "c1" {
		t.Errorf("unexpected cached results %+v", got)
	}

	if _, hit := c.Get("deployment", 6); hit {
		t.Error("different limit must not share an entry")
	}
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 1, c.Generation(), []domain.Chunk{{ChunkID: "c1"}})

	got, _ := c.Get("q", 1)
	got[0].ChunkID = "mutated"

	again, _ := c.Get("q", 1)
	if again[0].ChunkID != "c1" {
		t.Error("cache entry was mutated through a returned slice")
	}
}

func TestQueryCache_Eviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	gen := c.Generation()

	c.Put("a", 1, gen, nil)
	c.Put("b", 1, gen, nil)
	c.Get("a", 1) // a becomes most recent
	c.Put("c", 1, gen, nil)

	if _, hit := c.Get("b", 1); hit {
		t.Error("expected b to be evicted")
	}
	if _, hit := c.Get("a", 1); !hit {
		t.Error("expected a to survive")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Millisecond)
	c.Put("q", 1, c.Generation(), nil)

	time.Sleep(5 * time.Millisecond)

	if _, hit := c.Get("q", 1); hit {
		t.Error("expected expired entry to miss")
	}
}

func TestQueryCache_StaleGenerationDropped(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	gen := c.Generation()
	c.Invalidate()

	c.Put("q", 1, gen, []domain.Chunk{{ChunkID: "stale"}})

	if _, hit := c.Get("q", 1); hit {
		t.Error("results computed before invalidation must not be cached")
	}
}

func TestCachedRetriever(t *testing.T) {
	inner := &countingRetriever{results: []domain.Chunk{{ChunkID: "c1"}}}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute), nil)

	for i := 0; i < 3; i++ {
		got, err := r.Retrieve(context.Background(), "deployment", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 result, got %d", len(got))
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", inner.calls)
	}
}

func TestCachedRetriever_ErrorsNotCached(t *testing.T) {
	inner := &countingRetriever{err: errors.New("boom")}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute), nil)

	_, _ = r.Retrieve(context.Background(), "q", 1)
	_, _ = r.Retrieve(context.Background(), "q", 1)

	if inner.calls != 2 {
		t.Errorf("expected errors to bypass the cache, got %d calls", inner.calls)
	}
}

func TestInvalidatingStore(t *testing.T) {
	qc := NewQueryCache(10, time.Minute)
	store := NewInvalidatingStore(memstore.NewMemoryStore(), qc)

	qc.Put("q", 1, qc.Generation(), nil)
	if err := store.AddChunk(domain.Chunk{ChunkID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if _, hit := qc.Get("q", 1); hit {
		t.Error("expected AddChunk to invalidate")
	}

	qc.Put("q", 1, qc.Generation(), nil)
	gen := qc.Generation()
	if err := store.AddChunk(domain.Chunk{ChunkID: "c1"}); !errors.Is(err, domain.ErrDuplicateChunk) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if qc.Generation() != gen {
		t.Error("failed write must not invalidate")
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, hit := qc.Get("q", 1); hit {
		t.Error("expected Clear to invalidate")
	}
}

func TestCachedRetriever_SeesWritesFromAnotherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.sqlite")
	reader, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	writer, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	r := NewCachedRetriever(retriever.NewKeywordRetriever(reader, logging.Nop()), NewQueryCache(10, time.Minute), reader)

	before, err := r.Retrieve(context.Background(), "deployment topology", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 0 {
		t.Fatalf("expected empty store, got %d results", len(before))
	}

	chunk := domain.Chunk{ChunkID: "c1", DocumentID: "d1", Text: "deployment topology overview"}
	if err := writer.AddChunk(chunk); err != nil {
		t.Fatal(err)
	}

	after, err := r.Retrieve(context.Background(), "deployment topology", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 || after[0].ChunkID != "c1" {
		t.Errorf("expected chunk written by another handle, got %+v", after)
	}
}

type revisionStub struct {
	*memstore.MemoryStore
	rev string
	err error
}

func (s *revisionStub) Revision() (string, error) { return s.rev, s.err }

func TestCachedRetriever_RevisionChecks(t *testing.T) {
	inner := &countingRetriever{results: []domain.Chunk{{ChunkID: "c1"}}}
	src := &revisionStub{MemoryStore: memstore.NewMemoryStore(), rev: "1"}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute), src)
	ctx := context.Background()

	_, _ = r.Retrieve(ctx, "q", 1)
	_, _ = r.Retrieve(ctx, "q", 1)
	if inner.calls != 1 {
		t.Fatalf("expected cached second call, got %d calls", inner.calls)
	}

	src.rev = "2"
	_, _ = r.Retrieve(ctx, "q", 1)
	if inner.calls != 2 {
		t.Errorf("expected revision change to invalidate, got %d calls", inner.calls)
	}

	src.err = errors.New("disk gone")
	_, _ = r.Retrieve(ctx, "q", 1)
	_, _ = r.Retrieve(ctx, "q", 1)
	if inner.calls != 4 {
		t.Errorf("expected unreadable revision to bypass the cache, got %d calls", inner.calls)
	}
}

func TestInvalidatingStore_AddChunks(t *testing.T) {
	qc := NewQueryCache(10, time.Minute)
	s := NewInvalidatingStore(memstore.NewMemoryStore(), qc)

	qc.Put("q", 1, qc.Generation(), nil)
	skipped, err := s.AddChunks([]domain.Chunk{{ChunkID: "c1"}, {ChunkID: "c1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 1 || skipped[0] != "c1" {
		t.Errorf("expected [c1] skipped, got %v", skipped)
	}
	if _, hit := qc.Get("q", 1); hit {
		t.Error("expected batch write to invalidate")
	}

	qc.Put("q", 1, qc.Generation(), nil)
	gen := qc.Generation()
	if _, err := s.AddChunks([]domain.Chunk{{ChunkID: "c1"}}); err != nil {
		t.Fatal(err)
	}
	if qc.Generation() != gen {
		t.Error("all-duplicate batch must not invalidate")
	}
}
