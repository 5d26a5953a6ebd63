package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// ErrStoreLocked is returned when another process holds the store file.
var ErrStoreLocked = errors.New("store is locked by another process")

// openTimeout bounds the wait for bolt's file lock.
var openTimeout = time.Second

var (
	bucketChunks   = []byte("chunks")
	bucketChunkIDs = []byte("chunk_ids")
	bucketMeta     = []byte("meta")
)

// BoltStore persists chunks in a bbolt file. Chunks are keyed by a
// monotonically increasing sequence so iteration yields insertion order;
// chunk_ids maps each chunk id to its sequence key. The meta bucket sequence
// is bumped by every write and serves as the store revision.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketChunkIDs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db}
	if err := s.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func bumpRevision(tx *bbolt.Tx) error {
	_, err := tx.Bucket(bucketMeta).NextSequence()
	return err
}

// put appends chunk under the next sequence key and indexes its id.
func put(tx *bbolt.Tx, chunk domain.Chunk) error {
	chunks := tx.Bucket(bucketChunks)
	seq, err := chunks.NextSequence()
	if err != nil {
		return err
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	key := seqKey(seq)
	if err := chunks.Put(key, data); err != nil {
		return err
	}
	return tx.Bucket(bucketChunkIDs).Put([]byte(chunk.ChunkID), key)
}

func (s *BoltStore) AddChunk(chunk domain.Chunk) error {
	if chunk.ChunkID == "" {
		return fmt.Errorf("chunk id is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketChunkIDs).Get([]byte(chunk.ChunkID)) != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateChunk, chunk.ChunkID)
		}
		if err := put(tx, chunk); err != nil {
			return err
		}
		return bumpRevision(tx)
	})
}

// AddChunks stores a batch in one transaction. Duplicates within the batch
// or against the store are skipped and returned by id.
func (s *BoltStore) AddChunks(batch []domain.Chunk) ([]string, error) {
	for _, chunk := range batch {
		if chunk.ChunkID == "" {
			return nil, fmt.Errorf("chunk id is required")
		}
	}

	var skipped []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		skipped = skipped[:0]
		ids := tx.Bucket(bucketChunkIDs)
		for _, chunk := range batch {
			if ids.Get([]byte(chunk.ChunkID)) != nil {
				skipped = append(skipped, chunk.ChunkID)
				continue
			}
			if err := put(tx, chunk); err != nil {
				return err
			}
		}
		return bumpRevision(tx)
	})
	if err != nil {
		return nil, err
	}
	return skipped, nil
}

func (s *BoltStore) AllChunks() ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		chunks = make([]domain.Chunk, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var c domain.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("decode chunk %x: %w", k, err)
			}
			chunks = append(chunks, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *BoltStore) Size() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketChunkIDs).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes all chunks. Schema metadata is kept.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketChunkIDs} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return bumpRevision(tx)
	})
}

// Revision returns the write counter kept in the meta bucket.
func (s *BoltStore) Revision() (string, error) {
	var rev uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		rev = tx.Bucket(bucketMeta).Sequence()
		return nil
	})
	return strconv.FormatUint(rev, 10), err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var (
	_ port.ChunkStore      = (*BoltStore)(nil)
	_ port.BatchStore      = (*BoltStore)(nil)
	_ port.RevisionedStore = (*BoltStore)(nil)
)
