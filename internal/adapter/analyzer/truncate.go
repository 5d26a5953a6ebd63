package analyzer

// Truncate shortens s to at most limit runes and appends "..." when anything
// was cut. Multi-byte characters are never split.
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
