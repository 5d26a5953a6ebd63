package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"ragquery/internal/adapter/analyzer"
	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// QueryCache is an LRU cache of evidence sets with a TTL. Every entry is
// stamped with the store generation it was computed against; Invalidate bumps
// the generation so entries computed before a store write are never served.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	storeGen uint64
}

type cacheEntry struct {
	results   []domain.Chunk
	timestamp time.Time
	storeGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// cacheKey normalises the query the same way ranking does, so "Foo  bar" and
// "foo bar" share an entry.
func cacheKey(query string, limit int) string {
	normalized := strings.Join(analyzer.ExtractKeywords(query), " ")
	data := make([]byte, 8, 8+len(normalized))
	binary.BigEndian.PutUint64(data, uint64(int64(limit)))
	data = append(data, normalized...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, limit int) ([]domain.Chunk, bool) {
	key := cacheKey(query, limit)

	c.mu.RLock()
	entry, exists := c.entries[key]
	currentGen := c.storeGen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.storeGen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return cloneChunks(entry.results), true
}

// Generation returns the current store generation.
func (c *QueryCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storeGen
}

// Put stores results computed against generation gen. Results from an older
// generation are dropped.
func (c *QueryCache) Put(query string, limit int, gen uint64, results []domain.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.storeGen {
		return
	}

	key := cacheKey(query, limit)
	entry := &cacheEntry{
		results:   cloneChunks(results),
		timestamp: time.Now(),
		storeGen:  c.storeGen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.storeGen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func cloneChunks(chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out
}

// CachedRetriever serves repeated queries from a QueryCache. When the source
// store reports a revision, every Retrieve compares it with the last one seen
// and invalidates the cache on change, so writes made through another handle
// or process are picked up.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
	source    port.RevisionedStore

	mu      sync.Mutex
	lastRev string
	seen    bool
}

// NewCachedRetriever wraps retriever. source may be nil or a store without
// revisions, in which case only in-process invalidation applies.
func NewCachedRetriever(retriever port.Retriever, cache *QueryCache, source port.ChunkStore) *CachedRetriever {
	r := &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
	if rs, ok := source.(port.RevisionedStore); ok {
		r.source = rs
	}
	return r
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Chunk, error) {
	if !r.syncRevision() {
		return r.retriever.Retrieve(ctx, query, limit)
	}

	if results, hit := r.cache.Get(query, limit); hit {
		return results, nil
	}

	gen := r.cache.Generation()
	results, err := r.retriever.Retrieve(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	r.cache.Put(query, limit, gen, results)

	return results, nil
}

// syncRevision invalidates the cache when the source revision moved. It
// reports false when the revision cannot be read and the cache must be
// bypassed.
func (r *CachedRetriever) syncRevision() bool {
	if r.source == nil {
		return true
	}
	rev, err := r.source.Revision()
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen || rev != r.lastRev {
		r.cache.Invalidate()
		r.lastRev = rev
		r.seen = true
	}
	return true
}

// InvalidatingStore wraps a chunk store and invalidates the cache after every
// successful write.
type InvalidatingStore struct {
	port.ChunkStore
	cache *QueryCache
}

func NewInvalidatingStore(store port.ChunkStore, cache *QueryCache) *InvalidatingStore {
	return &InvalidatingStore{ChunkStore: store, cache: cache}
}

func (s *InvalidatingStore) AddChunk(chunk domain.Chunk) error {
	if err := s.ChunkStore.AddChunk(chunk); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// AddChunks batches through the wrapped store when it supports it and falls
// back to one AddChunk per chunk otherwise.
func (s *InvalidatingStore) AddChunks(batch []domain.Chunk) ([]string, error) {
	if bs, ok := s.ChunkStore.(port.BatchStore); ok {
		skipped, err := bs.AddChunks(batch)
		if err != nil {
			return nil, err
		}
		if len(skipped) < len(batch) {
			s.cache.Invalidate()
		}
		return skipped, nil
	}

	var skipped []string
	added := false
	for _, chunk := range batch {
		err := s.ChunkStore.AddChunk(chunk)
		switch {
		case errors.Is(err, domain.ErrDuplicateChunk):
			skipped = append(skipped, chunk.ChunkID)
		case err != nil:
			if added {
				s.cache.Invalidate()
			}
			return skipped, err
		default:
			added = true
		}
	}
	if added {
		s.cache.Invalidate()
	}
	return skipped, nil
}

func (s *InvalidatingStore) Clear() error {
	if err := s.ChunkStore.Clear(); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

var (
	_ port.Retriever  = (*CachedRetriever)(nil)
	_ port.ChunkStore = (*InvalidatingStore)(nil)
	_ port.BatchStore = (*InvalidatingStore)(nil)
)
