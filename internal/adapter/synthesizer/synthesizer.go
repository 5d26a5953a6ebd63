package synthesizer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/phuslu/log"

	"ragquery/internal/adapter/citation"
	"ragquery/internal/domain"
	"ragquery/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	systemTmpl = mustParse("templates/system_prompt.txt")
	userTmpl   = mustParse("templates/user_prompt.txt")
)

func mustParse(name string) *template.Template {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("template not found: %v", err))
	}
	return template.Must(template.New(name).Funcs(templateFuncs()).Parse(string(content)))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}
}

// PromptData is the input to the prompt templates. Chunk numbering in the
// rendered prompt is 1-based and follows the order of Chunks.
type PromptData struct {
	Query  string
	Chunks []domain.Chunk
}

// RenderPrompt renders the system and user prompts for a query.
func RenderPrompt(query string, chunks []domain.Chunk) (system, user string, err error) {
	data := PromptData{Query: query, Chunks: chunks}

	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	system = buf.String()

	buf.Reset()
	if err := userTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	user = buf.String()

	return system, user, nil
}

// LLMSynthesizer asks an LLM for a cited answer over an evidence set and
// resolves the citation markers it returns.
type LLMSynthesizer struct {
	llm    port.LLM
	logger *log.Logger
}

func NewLLMSynthesizer(llm port.LLM, logger *log.Logger) *LLMSynthesizer {
	return &LLMSynthesizer{llm: llm, logger: logger}
}

// Synthesize implements port.Synthesizer. Any generator failure is returned
// as *domain.SynthesisError.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, query string, chunks []domain.Chunk, opts port.GenerateOptions) (domain.SynthesisResult, error) {
	if len(chunks) == 0 {
		return domain.SynthesisResult{AnswerText: domain.NoInformationAnswer, CitedChunkIDs: []string{}}, nil
	}

	system, user, err := RenderPrompt(query, chunks)
	if err != nil {
		return domain.SynthesisResult{}, &domain.SynthesisError{Err: err}
	}

	start := time.Now()
	answer, err := s.llm.GenerateWithSystem(ctx, system, user, opts)
	if err != nil {
		s.logger.Warn().
			Str("model", s.llm.ModelName()).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("answer generation failed")
		return domain.SynthesisResult{}, &domain.SynthesisError{Err: err}
	}

	cited := citation.ResolveCitations(answer, chunks)

	s.logger.Debug().
		Str("model", s.llm.ModelName()).
		Int("chunks", len(chunks)).
		Int("cited", len(cited)).
		Dur("elapsed", time.Since(start)).
		Msg("answer generated")

	return domain.SynthesisResult{AnswerText: answer, CitedChunkIDs: cited}, nil
}

var _ port.Synthesizer = (*LLMSynthesizer)(nil)
