package resolve

import (
	"regexp"
	"strings"
)

var (
	invalidKeyChars    = regexp.MustCompile(`[^a-zA-Z0-9-]`)
	repeatedSeparators = regexp.MustCompile(`-+`)
)

// Normalize maps a secret name onto a store-safe key: every character other
// than ASCII letters, digits and hyphens becomes a hyphen, runs of hyphens
// collapse, leading and trailing hyphens are trimmed and the result is
// lower-cased. Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	key := invalidKeyChars.ReplaceAllString(name, "-")
	key = repeatedSeparators.ReplaceAllString(key, "-")
	key = strings.Trim(key, "-")
	return strings.ToLower(key)
}
