package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ragquery/internal/port"
)

var chunkLine = regexp.MustCompile(`(?m)^Chunk (\d+): (.*)$`)

// EchoLLM answers offline by quoting the first line of every numbered chunk
// in the prompt and citing it. It exists for smoke tests and demos without a
// model server.
type EchoLLM struct{}

func NewEchoLLM() *EchoLLM {
	return &EchoLLM{}
}

func (e *EchoLLM) ModelName() string {
	return "echo"
}

func (e *EchoLLM) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts port.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	matches := chunkLine.FindAllStringSubmatch(userPrompt, -1)
	if len(matches) == 0 {
		return "The provided chunks do not contain this information.", nil
	}

	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s [%s].", strings.TrimRight(strings.TrimSpace(m[2]), "."), m[1])
	}

	answer := b.String()
	if opts.MaxTokens > 0 {
		words := strings.Fields(answer)
		if len(words) > opts.MaxTokens {
			answer = strings.Join(words[:opts.MaxTokens], " ")
		}
	}
	return answer, nil
}

var _ port.LLM = (*EchoLLM)(nil)
