package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"ragquery/internal/domain"
	"ragquery/internal/port"
)

// LineChunker groups whole lines into chunks of at most maxTokens estimated
// tokens, carrying roughly overlap tokens of trailing lines into the next
// chunk.
type LineChunker struct {
	maxTokens int
	overlap   int
	tokenizer port.Tokenizer
}

func NewLineChunker(maxTokens, overlap int, tokenizer port.Tokenizer) *LineChunker {
	return &LineChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

// span is a chunk's line range: start inclusive, end exclusive, both 0-based.
type span struct {
	start int
	end   int
	text  string
}

// Chunk splits doc.Text into chunks inheriting the document's id, title and
// url. Chunks consisting only of whitespace are dropped.
func (c *LineChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, s := range c.split(doc.Text) {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ChunkID:       generateChunkID(doc.ID, s.start, s.end),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Text:          strings.TrimSpace(s.text),
			URL:           doc.URL,
		})
	}
	return chunks, nil
}

func (c *LineChunker) split(content string) []span {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	var spans []span
	startLine := 0

	for startLine < len(lines) {
		endLine := startLine
		currentTokens := 0
		var chunkText strings.Builder

		for endLine < len(lines) {
			lineText := lines[endLine]
			lineTokens := c.tokenizer.CountTokens(lineText)

			if currentTokens > 0 && currentTokens+lineTokens > c.maxTokens {
				break
			}

			if endLine > startLine {
				chunkText.WriteString("\n")
			}
			chunkText.WriteString(lineText)
			currentTokens += lineTokens
			endLine++
		}

		if endLine == startLine {
			chunkText.WriteString(lines[endLine])
			endLine++
		}

		spans = append(spans, span{start: startLine, end: endLine, text: chunkText.String()})
		if endLine >= len(lines) {
			break
		}

		newStart := endLine - c.calculateOverlapLines(lines, startLine, endLine)
		if newStart <= startLine {
			newStart = startLine + 1
		}
		startLine = newStart
	}

	return spans
}

func (c *LineChunker) calculateOverlapLines(lines []string, start, end int) int {
	if c.overlap == 0 {
		return 0
	}

	overlapLines := 0
	tokens := 0

	for i := end - 1; i >= start && tokens < c.overlap; i-- {
		tokens += c.tokenizer.CountTokens(lines[i])
		overlapLines++
	}

	return overlapLines
}

func generateChunkID(docID string, startLine, endLine int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, startLine, endLine)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

var _ port.Chunker = (*LineChunker)(nil)
