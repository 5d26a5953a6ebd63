package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/phuslu/log"
	"gopkg.in/yaml.v3"

	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// IngestUseCase loads documents from disk or a seed file into a chunk store.
type IngestUseCase struct {
	store   port.ChunkStore
	walker  port.FileWalker
	loader  port.DocumentLoader
	chunker port.Chunker
	baseURL string
	logger  *log.Logger
}

// NewIngestUseCase creates a new ingest use case. baseURL may be empty, in
// which case ingested chunks carry no URL.
func NewIngestUseCase(
	store port.ChunkStore,
	walker port.FileWalker,
	loader port.DocumentLoader,
	chunker port.Chunker,
	baseURL string,
	logger *log.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		store:   store,
		walker:  walker,
		loader:  loader,
		chunker: chunker,
		baseURL: baseURL,
		logger:  logger,
	}
}

// IngestResult contains the results of an ingest operation.
type IngestResult struct {
	FilesIngested   int
	FilesFailed     int
	FilesSkipped    int
	ChunksAdded     int
	ChunksDuplicate int
	Errors          []string
}

// ProgressFunc is called after each file with the number processed so far.
type ProgressFunc func(processed, total int, currentFile string)

// Ingest walks root and adds a chunk set for every matching file. Files in a
// format the loader cannot read are skipped; files that fail to load are
// recorded in the result. Duplicate chunk ids are counted, not fatal.
func (u *IngestUseCase) Ingest(ctx context.Context, root string, progress ProgressFunc) (*IngestResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &IngestResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !u.loader.Supports(file.Path) {
			result.FilesSkipped++
			u.logger.Debug().Str("file", file.RelPath).Msg("unsupported format skipped")
		} else if err := u.ingestFile(file, result); err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", file.RelPath, err))
			u.logger.Warn().Str("file", file.RelPath).Err(err).Msg("skipping file")
		} else {
			result.FilesIngested++
		}

		if progress != nil {
			progress(i+1, len(files), file.RelPath)
		}
	}

	u.logger.Info().
		Str("root", root).
		Int("files", result.FilesIngested).
		Int("failed", result.FilesFailed).
		Int("skipped", result.FilesSkipped).
		Int("chunks", result.ChunksAdded).
		Int("duplicates", result.ChunksDuplicate).
		Msg("ingest complete")

	return result, nil
}

func (u *IngestUseCase) ingestFile(file port.FileInfo, result *IngestResult) error {
	title, text, err := u.loader.Load(file.Path)
	if err != nil {
		return err
	}

	doc := domain.Document{
		ID:    generateDocID(file.RelPath),
		Path:  file.Path,
		Title: title,
		Text:  text,
		URL:   documentURL(u.baseURL, file.RelPath),
	}

	chunks, err := u.chunker.Chunk(doc)
	if err != nil {
		return fmt.Errorf("failed to chunk content: %w", err)
	}

	return u.addChunks(chunks, result)
}

// LoadSeed adds the chunks listed in a YAML seed file.
func (u *IngestUseCase) LoadSeed(path string) (*IngestResult, error) {
	seed, err := ReadSeedFile(path)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	if err := u.addChunks(seed.Chunks, result); err != nil {
		return result, err
	}

	u.logger.Info().
		Str("seed", path).
		Int("chunks", result.ChunksAdded).
		Int("duplicates", result.ChunksDuplicate).
		Msg("seed loaded")

	return result, nil
}

// addChunks writes chunks in one batch when the store supports it and one at
// a time otherwise.
func (u *IngestUseCase) addChunks(chunks []domain.Chunk, result *IngestResult) error {
	if bs, ok := u.store.(port.BatchStore); ok {
		skipped, err := bs.AddChunks(chunks)
		if err != nil {
			return fmt.Errorf("failed to store %d chunks: %w", len(chunks), err)
		}
		for _, id := range skipped {
			u.logger.Debug().Str("chunk_id", id).Msg("duplicate chunk skipped")
		}
		result.ChunksAdded += len(chunks) - len(skipped)
		result.ChunksDuplicate += len(skipped)
		return nil
	}

	for _, c := range chunks {
		err := u.store.AddChunk(c)
		switch {
		case err == nil:
			result.ChunksAdded++
		case errors.Is(err, domain.ErrDuplicateChunk):
			result.ChunksDuplicate++
			u.logger.Debug().Str("chunk_id", c.ChunkID).Msg("duplicate chunk skipped")
		default:
			return fmt.Errorf("failed to store chunk %s: %w", c.ChunkID, err)
		}
	}
	return nil
}

// ReadSeedFile parses a YAML list of chunks. Every chunk needs a chunk_id and
// a document_id.
func ReadSeedFile(path string) (*domain.SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed domain.SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, c := range seed.Chunks {
		if c.ChunkID == "" || c.DocumentID == "" {
			return nil, fmt.Errorf("seed chunk %d: chunk_id and document_id are required", i+1)
		}
	}
	return &seed, nil
}

// generateDocID creates a stable ID for a document based on its path
// relative to the ingest root.
func generateDocID(relPath string) string {
	hash := sha256.Sum256([]byte(relPath))
	return hex.EncodeToString(hash[:8])
}

func documentURL(baseURL, relPath string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.JoinPath(baseURL, relPath)
	if err != nil {
		return ""
	}
	return u
}
