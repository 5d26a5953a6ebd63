package citation

import (
	"regexp"
	"strconv"

	"ragquery/internal/domain"
)

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// ResolveCitations maps [n] markers in answer to chunk ids of ranked, where
// [1] is ranked[0]. Markers outside the ranked range are skipped. Each chunk
// id appears once, in order of first citation.
func ResolveCitations(answer string, ranked []domain.Chunk) []string {
	cited := []string{}
	seen := make(map[string]struct{})

	for _, m := range markerPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || n > len(ranked) {
			continue
		}

		id := ranked[n-1].ChunkID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cited = append(cited, id)
	}

	return cited
}

// BuildCitedDocuments collapses cited chunk ids into one entry per source
// document, ordered by the document's first citation. The first cited chunk
// of a document supplies its title, url and snippet. Ids missing from ranked
// are ignored.
func BuildCitedDocuments(citedIDs []string, ranked []domain.Chunk) []domain.CitedDocument {
	byID := make(map[string]domain.Chunk, len(ranked))
	for _, c := range ranked {
		if _, ok := byID[c.ChunkID]; !ok {
			byID[c.ChunkID] = c
		}
	}

	docs := []domain.CitedDocument{}
	seenDocs := make(map[string]struct{})

	for _, id := range citedIDs {
		c, ok := byID[id]
		if !ok {
			continue
		}
		if _, ok := seenDocs[c.DocumentID]; ok {
			continue
		}
		seenDocs[c.DocumentID] = struct{}{}

		doc := domain.CitedDocument{
			ID:      c.DocumentID,
			Title:   c.DocumentTitle,
			Snippet: c.Text,
		}
		if c.URL != "" {
			url := c.URL
			doc.URL = &url
		}
		docs = append(docs, doc)
	}

	return docs
}
