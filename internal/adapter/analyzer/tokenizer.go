package analyzer

import (
	"strings"
	"unicode"

	"ragquery/internal/port"
)

// tokensPerWord approximates how many model tokens an English word costs.
const tokensPerWord = 1.3

// Tokenizer estimates model token counts so chunks fit a prompt budget. It
// never needs to agree with a real model tokenizer, only to be stable.
type Tokenizer struct{}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// CountTokens returns the estimated token cost of text. Words are runs of
// letters, digits and underscores.
func (t *Tokenizer) CountTokens(text string) int {
	n := len(strings.FieldsFunc(text, isSeparator))
	return int(float64(n) * tokensPerWord)
}

func isSeparator(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}

var _ port.Tokenizer = (*Tokenizer)(nil)
