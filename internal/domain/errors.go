package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDuplicateChunk is returned by stores when a chunk id is already present.
var ErrDuplicateChunk = errors.New("duplicate chunk id")

// RetrievalError reports a failure reading the chunk store.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// SynthesisError reports a failure of the answer generator.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ValidationError collects per-field request problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Details returns the field messages in the shape used by ErrorResponse.
func (e *ValidationError) Details() map[string]any {
	details := make(map[string]any, len(e.Fields))
	for name, msg := range e.Fields {
		details[name] = msg
	}
	return details
}
