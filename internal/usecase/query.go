package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/phuslu/log"

	"ragquery/internal/adapter/citation"
	"ragquery/internal/domain"
	"ragquery/internal/port"
)

const DefaultMaxSources = 10

// QueryUseCase answers a question: rank evidence, synthesize a cited answer,
// and collapse the citations into source documents.
type QueryUseCase struct {
	retriever         port.Retriever
	synthesizer       port.Synthesizer
	defaultMaxSources int
	defaultMaxTokens  int
	temperature       float64
	timeout           time.Duration
	logger            *log.Logger
}

// QueryOptions holds request-independent defaults.
type QueryOptions struct {
	DefaultMaxSources int
	DefaultMaxTokens  int           // 0 leaves the generator's own default
	Temperature       float64       // 0 leaves the generator's own default
	SynthesisTimeout  time.Duration // 0 disables the deadline
}

// NewQueryUseCase creates a new query use case.
func NewQueryUseCase(
	retriever port.Retriever,
	synthesizer port.Synthesizer,
	opts QueryOptions,
	logger *log.Logger,
) *QueryUseCase {
	if opts.DefaultMaxSources <= 0 {
		opts.DefaultMaxSources = DefaultMaxSources
	}
	return &QueryUseCase{
		retriever:         retriever,
		synthesizer:       synthesizer,
		defaultMaxSources: opts.DefaultMaxSources,
		defaultMaxTokens:  opts.DefaultMaxTokens,
		temperature:       opts.Temperature,
		timeout:           opts.SynthesisTimeout,
		logger:            logger,
	}
}

// Execute runs one query. The request is assumed to be validated. Errors are
// *domain.RetrievalError or *domain.SynthesisError.
func (u *QueryUseCase) Execute(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	start := time.Now()

	maxSources := u.defaultMaxSources
	if req.MaxSources != nil {
		maxSources = *req.MaxSources
	}
	opts := port.GenerateOptions{MaxTokens: u.defaultMaxTokens, Temperature: u.temperature}
	if req.MaxTokens != nil {
		opts.MaxTokens = *req.MaxTokens
	}

	query := strings.TrimSpace(req.Query)

	chunks, err := u.retriever.Retrieve(ctx, query, maxSources)
	if err != nil {
		u.logger.Error().Err(err).Str("query", query).Msg("retrieval failed")
		return nil, err
	}

	if len(chunks) == 0 {
		u.logger.Info().Str("query", query).Msg("no relevant chunks")
		return &domain.QueryResponse{
			Answer:            domain.NoInformationAnswer,
			AnswerSynthesized: false,
			CitedDocuments:    []domain.CitedDocument{},
			Metadata: domain.ResponseMetadata{
				ProcessingTimeMs: time.Since(start).Milliseconds(),
			},
		}, nil
	}

	synthCtx := ctx
	if u.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	result, err := u.synthesizer.Synthesize(synthCtx, query, chunks, opts)
	if err != nil {
		u.logger.Error().Err(err).Str("query", query).Int("chunks", len(chunks)).Msg("synthesis failed")
		return nil, err
	}

	docs := citation.BuildCitedDocuments(result.CitedChunkIDs, chunks)

	resp := &domain.QueryResponse{
		Answer:            result.AnswerText,
		AnswerSynthesized: true,
		CitedDocuments:    docs,
		Metadata: domain.ResponseMetadata{
			TotalChunksRetrieved: len(chunks),
			TotalDocumentsCited:  len(docs),
			ProcessingTimeMs:     time.Since(start).Milliseconds(),
		},
	}

	u.logger.Info().
		Str("query", query).
		Int("chunks", len(chunks)).
		Int("cited_chunks", len(result.CitedChunkIDs)).
		Int("cited_documents", len(docs)).
		Int64("elapsed_ms", resp.Metadata.ProcessingTimeMs).
		Msg("query answered")

	return resp, nil
}
