package domain

// NoInformationAnswer is returned when ranking finds no evidence for a query.
const NoInformationAnswer = "No relevant information found in the knowledge base to answer this question."

// Chunk is a unit of retrievable evidence. RelevanceScore is only meaningful
// on a copy returned by ranking and is never persisted.
type Chunk struct {
	ChunkID        string  `json:"chunk_id" yaml:"chunk_id"`
	DocumentID     string  `json:"document_id" yaml:"document_id"`
	DocumentTitle  string  `json:"document_title" yaml:"document_title"`
	Text           string  `json:"text" yaml:"text"`
	URL            string  `json:"url,omitempty" yaml:"url,omitempty"`
	RelevanceScore float64 `json:"-" yaml:"-"`
}

// WithScore returns a copy of the chunk carrying the given score.
func (c Chunk) WithScore(score float64) Chunk {
	c.RelevanceScore = score
	return c
}

// Document is a loaded source file prior to chunking.
type Document struct {
	ID    string
	Path  string
	Title string
	Text  string
	URL   string
}

// SynthesisResult pairs a generated answer with the chunk ids it cites,
// deduplicated in first-occurrence order.
type SynthesisResult struct {
	AnswerText    string
	CitedChunkIDs []string
}

// CitedDocument is one source document referenced by an answer. URL is nil
// when the document has none and is then encoded as null.
type CitedDocument struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	URL     *string `json:"url"`
}

// SeedFile is the on-disk format for curated chunk lists.
type SeedFile struct {
	Chunks []Chunk `json:"chunks" yaml:"chunks"`
}

type StoreStats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}
