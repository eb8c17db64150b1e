// Package noteidgen generates short, opaque note IDs of the form
// "<prefix>-<token>" and retries until the token is unique against a
// store's existing ID set.
package noteidgen

import (
	"strings"

	"github.com/google/uuid"
)

// tokenLength is the number of hex characters kept from a fresh
// UUID's hex digest, enough entropy to make collisions rare while
// keeping ids short.
const tokenLength = 8

// Generate returns a new unique id under prefix, retrying against
// existing until it finds one that isn't already taken.
func Generate(prefix string, existing map[string]struct{}) string {
	for {
		candidate := prefix + "-" + newToken()
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

func newToken() string {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")
	return hex[:tokenLength]
}

// LooksLikeID reports whether s has the shape "<prefix>-<token>",
// optionally followed by "-<slug>.md" (the on-disk filename form).
func LooksLikeID(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix+"-") {
		return false
	}
	rest := strings.TrimPrefix(s, prefix+"-")
	return len(rest) > 0
}

// ExtractID pulls the "<prefix>-<token>" id out of a string that may
// carry a trailing "-slug.md" suffix, e.g. a filename or a markdown link
// target.
func ExtractID(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix+"-") {
		return "", false
	}
	rest := s[len(prefix)+1:]
	rest = strings.TrimSuffix(rest, ".md")

	parts := strings.SplitN(rest, "-", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", false
	}
	return prefix + "-" + parts[0], true
}
