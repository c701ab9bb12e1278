package gazetteer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName lowercases, strips diacritics and collapses whitespace.
// All name matching and duplicate grouping keys off this form.
func NormalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	stripped, _, err := transform.String(diacriticStripper, trimmed)
	if err != nil {
		stripped = trimmed
	}

	lower := strings.ToLower(stripped)
	return strings.Join(strings.Fields(lower), " ")
}

// Slug converts a name into a URL path segment: normalized form with
// every non-alphanumeric run collapsed to a single hyphen.
func Slug(name string) string {
	normalized := NormalizeName(name)
	if normalized == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(normalized))
	lastHyphen := true
	for _, r := range normalized {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
