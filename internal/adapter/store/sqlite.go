package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"ragquery/internal/domain"
	"ragquery/internal/port"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id       TEXT NOT NULL UNIQUE,
	document_id    TEXT NOT NULL,
	document_title TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

const insertChunk = `
INSERT INTO chunks (chunk_id, document_id, document_title, text, url)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(chunk_id) DO NOTHING`

// SQLiteStore persists chunks in a SQLite database using the pure-Go
// modernc driver. Rows are read back in insertion order.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// WAL lets readers snapshot while an ingest is writing
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddChunk(chunk domain.Chunk) error {
	if chunk.ChunkID == "" {
		return fmt.Errorf("chunk id is required")
	}

	res, err := s.db.Exec(insertChunk,
		chunk.ChunkID, chunk.DocumentID, chunk.DocumentTitle, chunk.Text, chunk.URL)
	if err != nil {
		return fmt.Errorf("inserting chunk: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting chunk: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateChunk, chunk.ChunkID)
	}
	return nil
}

// AddChunks inserts a batch in one transaction. Ids already stored or
// repeated in the batch are skipped and returned.
func (s *SQLiteStore) AddChunks(batch []domain.Chunk) ([]string, error) {
	for _, chunk := range batch {
		if chunk.ChunkID == "" {
			return nil, fmt.Errorf("chunk id is required")
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertChunk)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var skipped []string
	for _, chunk := range batch {
		res, err := stmt.Exec(chunk.ChunkID, chunk.DocumentID, chunk.DocumentTitle, chunk.Text, chunk.URL)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %s: %w", chunk.ChunkID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %s: %w", chunk.ChunkID, err)
		}
		if n == 0 {
			skipped = append(skipped, chunk.ChunkID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return skipped, nil
}

func (s *SQLiteStore) AllChunks() ([]domain.Chunk, error) {
	rows, err := s.db.Query(`
		SELECT chunk_id, document_id, document_title, text, url
		FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.DocumentTitle, &c.Text, &c.URL); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Size() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Revision combines the AUTOINCREMENT high-water mark with the row count.
// sqlite_sequence only grows and deletes change the count, so any write
// committed by any connection changes the pair.
func (s *SQLiteStore) Revision() (string, error) {
	var maxSeq, n int64
	err := s.db.QueryRow(`
		SELECT
			COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'chunks'), 0),
			(SELECT COUNT(*) FROM chunks)`).Scan(&maxSeq, &n)
	if err != nil {
		return "", fmt.Errorf("reading revision: %w", err)
	}
	return fmt.Sprintf("%d:%d", maxSeq, n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ port.ChunkStore      = (*SQLiteStore)(nil)
	_ port.BatchStore      = (*SQLiteStore)(nil)
	_ port.RevisionedStore = (*SQLiteStore)(nil)
)
