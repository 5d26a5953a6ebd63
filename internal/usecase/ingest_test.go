package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragquery/internal/adapter/analyzer"
	"ragquery/internal/adapter/chunker"
	"ragquery/internal/adapter/fs"
	"ragquery/internal/adapter/loader"
	"ragquery/internal/adapter/memstore"
	"ragquery/internal/adapter/store"
	"ragquery/internal/domain"
	"ragquery/internal/logging"
	"ragquery/internal/port"
)

func writeKB(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func newIngest(st port.ChunkStore, baseURL string) *IngestUseCase {
	return NewIngestUseCase(
		st,
		fs.NewWalker([]string{"**/*.md", "**/*.txt", "**/*.pdf"}, nil),
		loader.New(),
		chunker.NewLineChunker(256, 32, analyzer.NewTokenizer()),
		baseURL,
		logging.Nop(),
	)
}

func TestIngest_Directory(t *testing.T) {
	root := writeKB(t, map[string]string{
		"deploy/topology.md": "# Deployment Guide\n\nThe deployment topology uses active-passive configuration.",
		"nodes.txt":          "Each node runs the same version.",
		"image.png":          "ignored",
	})
	st := memstore.NewMemoryStore()

	var progressCalls int
	res, err := newIngest(st, "https://kb.example.com/docs").Ingest(context.Background(), root, func(processed, total int, _ string) {
		progressCalls++
		assert.Equal(t, 2, total)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesIngested)
	assert.Equal(t, 2, res.ChunksAdded)
	assert.Equal(t, 2, progressCalls)

	chunks, _ := st.AllChunks()
	require.Len(t, chunks, 2)

	// walker returns files sorted by relative path
	assert.Equal(t, "Deployment Guide", chunks[0].DocumentTitle)
	assert.Equal(t, "https://kb.example.com/docs/deploy/topology.md", chunks[0].URL)
	assert.Equal(t, "nodes", chunks[1].DocumentTitle)
	assert.NotEqual(t, chunks[0].DocumentID, chunks[1].DocumentID)
}

func TestIngest_ReingestReportsDuplicates(t *testing.T) {
	root := writeKB(t, map[string]string{"a.md": "# A\n\nalpha"})
	st := memstore.NewMemoryStore()
	uc := newIngest(st, "")

	_, err := uc.Ingest(context.Background(), root, nil)
	require.NoError(t, err)

	res, err := uc.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksAdded)
	assert.Equal(t, 1, res.ChunksDuplicate)

	chunks, _ := st.AllChunks()
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].URL)
}

func TestIngest_BadFileSkipped(t *testing.T) {
	root := writeKB(t, map[string]string{
		"broken.pdf": "not a pdf",
		"ok.txt":     "fine",
	})

	res, err := newIngest(memstore.NewMemoryStore(), "").Ingest(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesIngested)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Len(t, res.Errors, 1)
}

func TestIngest_UnsupportedFormatSkipped(t *testing.T) {
	root := writeKB(t, map[string]string{
		"diagram.png": "binary",
		"guide.md":    "# Guide\n\ntext",
	})
	uc := NewIngestUseCase(
		memstore.NewMemoryStore(),
		fs.NewWalker([]string{"**/*"}, nil),
		loader.New(),
		chunker.NewLineChunker(256, 32, analyzer.NewTokenizer()),
		"",
		logging.Nop(),
	)

	res, err := uc.Ingest(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesIngested)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 0, res.FilesFailed)
	assert.Empty(t, res.Errors)
}

// batchSpy records AddChunks calls so tests can tell the batch path ran.
type batchSpy struct {
	*memstore.MemoryStore
	batches int
}

func (s *batchSpy) AddChunks(batch []domain.Chunk) ([]string, error) {
	s.batches++
	var skipped []string
	for _, c := range batch {
		if err := s.AddChunk(c); err != nil {
			skipped = append(skipped, c.ChunkID)
		}
	}
	return skipped, nil
}

func TestIngest_UsesBatchStore(t *testing.T) {
	root := writeKB(t, map[string]string{
		"a.md": "# A\n\nalpha",
		"b.md": "# B\n\nbeta",
	})
	spy := &batchSpy{MemoryStore: memstore.NewMemoryStore()}
	uc := newIngest(spy, "")

	res, err := uc.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, spy.batches)
	assert.Equal(t, 2, res.ChunksAdded)

	res, err = uc.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksAdded)
	assert.Equal(t, 2, res.ChunksDuplicate)
}

func TestLoadSeed_BoltBatch(t *testing.T) {
	seed := `chunks:
  - chunk_id: c1
    document_id: d1
    text: first
  - chunk_id: c1
    document_id: d1
    text: repeated
  - chunk_id: c2
    document_id: d1
    text: second
`
	path := filepath.Join(t.TempDir(), "chunks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))
	bolt, err := store.NewBoltStore(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer bolt.Close()

	res, err := newIngest(bolt, "").LoadSeed(path)

	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksAdded)
	assert.Equal(t, 1, res.ChunksDuplicate)

	chunks, _ := bolt.AllChunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, "first", chunks[0].Text)
}

func TestLoadSeed(t *testing.T) {
	seed := `chunks:
  - chunk_id: c1
    document_id: d1
    document_title: Deployment Guide
    text: The deployment topology uses active-passive configuration.
    url: https://kb.example.com/deploy
  - chunk_id: c2
    document_id: d2
    document_title: Node Config
    text: Each node runs the same version.
  - chunk_id: c1
    document_id: d1
    text: duplicate
`
	path := filepath.Join(t.TempDir(), "chunks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))
	st := memstore.NewMemoryStore()

	res, err := newIngest(st, "").LoadSeed(path)

	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksAdded)
	assert.Equal(t, 1, res.ChunksDuplicate)

	chunks, _ := st.AllChunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, "https://kb.example.com/deploy", chunks[0].URL)
}

func TestReadSeedFile_MissingIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunks:\n  - text: orphan\n"), 0644))

	_, err := ReadSeedFile(path)
	assert.Error(t, err)
}
