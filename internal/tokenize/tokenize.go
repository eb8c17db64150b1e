// Package tokenize implements the word-splitting and stop-word removal
// behind the index's corpus statistics and per-note term vectors, so the
// TF-IDF similarity path always agrees with them on what a "term" is.
// Full-text search does not use it: FTS5 tokenizes with its own rules.
package tokenize

import "strings"

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"such": {}, "that": {}, "the": {}, "their": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "to": {}, "was": {},
	"will": {}, "with": {},
}

// Tokenize lowercases text, splits on runs of non-alphanumeric
// characters, and drops empty tokens and stop words.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isAlphanumeric(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	default:
		return false
	}
}

// TermFreqs builds a term-frequency map for a weighted field, adding
// weight per occurrence rather than a flat 1 so callers can accumulate
// several fields (title/tags/body) into one vector.
func TermFreqs(text string, weight float64, into map[string]float64) {
	for _, term := range Tokenize(text) {
		into[term] += weight
	}
}
