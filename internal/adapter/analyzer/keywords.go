package analyzer

import "strings"

// ExtractKeywords lower-cases the query and splits it on runs of ASCII
// whitespace. Other Unicode spaces, such as U+00A0, stay inside a token.
// Duplicates are kept: every token counts towards the keyword total.
func ExtractKeywords(query string) []string {
	query = strings.TrimFunc(strings.ToLower(query), isControlOrSpace)
	if query == "" {
		return nil
	}
	return strings.FieldsFunc(query, isASCIISpace)
}

func isControlOrSpace(r rune) bool {
	return r <= ' '
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// CountOccurrences counts non-overlapping occurrences of keyword in text.
// Scanning resumes after each match, so "aa" occurs once in "aaa".
// No word boundaries are enforced.
func CountOccurrences(text, keyword string) int {
	if text == "" || keyword == "" {
		return 0
	}

	count := 0
	index := 0
	for {
		i := strings.Index(text[index:], keyword)
		if i < 0 {
			return count
		}
		count++
		index += i + len(keyword)
	}
}
