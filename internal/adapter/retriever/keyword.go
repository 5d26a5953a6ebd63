package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/phuslu/log"

	"ragquery/internal/adapter/analyzer"
	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// RelevanceThreshold is the minimum score a chunk needs to be returned.
const RelevanceThreshold = 0.8

const (
	minScore = 0.8
	maxScore = 1.0
)

// Rank scores chunks against the query keywords, drops chunks below
// RelevanceThreshold and returns at most limit copies ordered by descending
// score. Chunks with equal scores keep their input order.
func Rank(query string, chunks []domain.Chunk, limit int) []domain.Chunk {
	keywords := analyzer.ExtractKeywords(query)
	if len(keywords) == 0 || len(chunks) == 0 || limit <= 0 {
		return []domain.Chunk{}
	}

	ranked := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		score := Score(keywords, c)
		if score >= RelevanceThreshold {
			ranked = append(ranked, c.WithScore(score))
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Score computes the relevance of one chunk for an already extracted keyword
// list. A chunk matching no keyword scores 0; any match lands in [0.8, 1.0].
func Score(keywords []string, c domain.Chunk) float64 {
	if len(keywords) == 0 {
		return 0
	}

	searchable := strings.ToLower(c.Text + " " + c.DocumentTitle)

	matched := 0
	occurrences := 0
	for _, kw := range keywords {
		n := analyzer.CountOccurrences(searchable, kw)
		if n > 0 {
			matched++
			occurrences += n
		}
	}
	if matched == 0 {
		return 0
	}

	base := float64(matched) / float64(len(keywords))
	boost := float64(occurrences) / 2
	if boost > 1 {
		boost = 1
	}

	score := (base + boost) / 2
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}
	return score
}

// KeywordRetriever ranks a snapshot of the chunk store for each query.
type KeywordRetriever struct {
	store  port.ChunkStore
	logger *log.Logger
}

func NewKeywordRetriever(store port.ChunkStore, logger *log.Logger) *KeywordRetriever {
	return &KeywordRetriever{
		store:  store,
		logger: logger,
	}
}

// Retrieve implements port.Retriever. Store failures are returned as
// *domain.RetrievalError.
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.RetrievalError{Err: err}
	}

	chunks, err := r.store.AllChunks()
	if err != nil {
		return nil, &domain.RetrievalError{Err: err}
	}

	ranked := Rank(query, chunks, limit)

	r.logger.Debug().
		Int("keywords", len(analyzer.ExtractKeywords(query))).
		Int("candidates", len(chunks)).
		Int("results", len(ranked)).
		Int("limit", limit).
		Msg("ranked chunks")

	return ranked, nil
}
