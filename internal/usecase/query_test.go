package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragquery/internal/adapter/memstore"
	"ragquery/internal/adapter/retriever"
	"ragquery/internal/adapter/synthesizer"
	"ragquery/internal/domain"
	"ragquery/internal/logging"
	"ragquery/internal/port"
)

type scriptedLLM struct {
	answer string
	err    error
	calls  int
	opts   port.GenerateOptions
	user   string
	wait   time.Duration
}

func (s *scriptedLLM) GenerateWithSystem(ctx context.Context, system, user string, opts port.GenerateOptions) (string, error) {
	s.calls++
	s.opts = opts
	s.user = user
	if s.wait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.wait):
		}
	}
	return s.answer, s.err
}

func (s *scriptedLLM) ModelName() string { return "scripted" }

type failingStore struct{ memstore.MemoryStore }

func (f *failingStore) AllChunks() ([]domain.Chunk, error) {
	return nil, errors.New("store offline")
}

func intPtr(n int) *int { return &n }

func seededStore(t *testing.T) *memstore.MemoryStore {
	t.Helper()
	s := memstore.NewMemoryStore()
	for _, c := range []domain.Chunk{
		{ChunkID: "c1", DocumentID: "d1", DocumentTitle: "Deployment Guide", Text: "The deployment topology uses active-passive configuration.", URL: "https://kb/d1"},
		{ChunkID: "c2", DocumentID: "d1", DocumentTitle: "Deployment Guide", Text: "Deployment failover is manual."},
		{ChunkID: "c3", DocumentID: "d2", DocumentTitle: "Node Config", Text: "Each node runs the same deployment version."},
		{ChunkID: "c4", DocumentID: "d3", DocumentTitle: "Security", Text: "Security policies are enforced."},
	} {
		require.NoError(t, s.AddChunk(c))
	}
	return s
}

func newQuery(store port.ChunkStore, llm port.LLM, opts QueryOptions) *QueryUseCase {
	logger := logging.Nop()
	return NewQueryUseCase(
		retriever.NewKeywordRetriever(store, logger),
		synthesizer.NewLLMSynthesizer(llm, logger),
		opts,
		logger,
	)
}

func TestExecute_CitedAnswer(t *testing.T) {
	llm := &scriptedLLM{answer: "Active-passive [1], manual failover [2], same version [3]. See [1] and [42]."}
	uc := newQuery(seededStore(t), llm, QueryOptions{})

	resp, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "  deployment  "})

	require.NoError(t, err)
	assert.True(t, resp.AnswerSynthesized)
	assert.Equal(t, llm.answer, resp.Answer)
	assert.Equal(t, 3, resp.Metadata.TotalChunksRetrieved)
	assert.Equal(t, 2, resp.Metadata.TotalDocumentsCited)
	require.Len(t, resp.CitedDocuments, 2)
	url := "https://kb/d1"
	assert.Equal(t, domain.CitedDocument{
		ID: "d1", Title: "Deployment Guide",
		Snippet: "The deployment topology uses active-passive configuration.",
		URL:     &url,
	}, resp.CitedDocuments[0])
	assert.Equal(t, "d2", resp.CitedDocuments[1].ID)
	assert.GreaterOrEqual(t, resp.Metadata.ProcessingTimeMs, int64(0))
}

func TestExecute_PromptGetsTrimmedQuery(t *testing.T) {
	llm := &scriptedLLM{answer: "See [1]."}
	uc := newQuery(seededStore(t), llm, QueryOptions{})

	_, err := uc.Execute(context.Background(), domain.QueryRequest{Query: " \t deployment topology \n"})

	require.NoError(t, err)
	assert.Contains(t, llm.user, "Question: deployment topology")
	assert.NotContains(t, llm.user, "Question:  ")
	assert.NotContains(t, llm.user, "\t deployment")
}

func TestExecute_NoEvidenceSkipsGenerator(t *testing.T) {
	llm := &scriptedLLM{answer: "unused"}
	uc := newQuery(seededStore(t), llm, QueryOptions{})

	resp, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "kubernetes"})

	require.NoError(t, err)
	assert.False(t, resp.AnswerSynthesized)
	assert.Equal(t, domain.NoInformationAnswer, resp.Answer)
	assert.Empty(t, resp.CitedDocuments)
	assert.NotNil(t, resp.CitedDocuments)
	assert.Zero(t, resp.Metadata.TotalChunksRetrieved)
	assert.Zero(t, resp.Metadata.TotalDocumentsCited)
	assert.Zero(t, llm.calls)
}

func TestExecute_MaxSourcesAndTokens(t *testing.T) {
	llm := &scriptedLLM{answer: "[1]"}
	uc := newQuery(seededStore(t), llm, QueryOptions{DefaultMaxTokens: 500})

	resp, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "deployment", MaxSources: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Metadata.TotalChunksRetrieved)
	assert.Equal(t, 500, llm.opts.MaxTokens)

	_, err = uc.Execute(context.Background(), domain.QueryRequest{Query: "deployment", MaxTokens: intPtr(42)})
	require.NoError(t, err)
	assert.Equal(t, 42, llm.opts.MaxTokens)
}

func TestExecute_DefaultMaxSources(t *testing.T) {
	s := memstore.NewMemoryStore()
	for i := 0; i < 15; i++ {
		require.NoError(t, s.AddChunk(domain.Chunk{ChunkID: string(rune('a' + i)), DocumentID: "d", Text: "deployment"}))
	}
	uc := newQuery(s, &scriptedLLM{answer: "ok"}, QueryOptions{})

	resp, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "deployment"})

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSources, resp.Metadata.TotalChunksRetrieved)
}

func TestExecute_RetrievalError(t *testing.T) {
	llm := &scriptedLLM{}
	uc := newQuery(&failingStore{}, llm, QueryOptions{})

	_, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "deployment"})

	var retrievalErr *domain.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Zero(t, llm.calls)
}

func TestExecute_SynthesisError(t *testing.T) {
	uc := newQuery(seededStore(t), &scriptedLLM{err: errors.New("model crashed")}, QueryOptions{})

	_, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "deployment"})

	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestExecute_SynthesisTimeout(t *testing.T) {
	llm := &scriptedLLM{answer: "late", wait: time.Second}
	uc := newQuery(seededStore(t), llm, QueryOptions{SynthesisTimeout: 20 * time.Millisecond})

	_, err := uc.Execute(context.Background(), domain.QueryRequest{Query: "deployment"})

	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
