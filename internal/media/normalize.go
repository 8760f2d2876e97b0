package media

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_\s]`)
	whitespace      = regexp.MustCompile(`\s`)
)

// NormalizeName turns a media title into a filesystem-safe base name:
// accents are decomposed and dropped, anything but ASCII letters, digits,
// '_' and whitespace is removed, whitespace becomes '_' and the result is
// lowercased. Every whitespace rune is replaced, not only ' ', so tabs and
// newlines never reach a filename.
// NormalizeName(NormalizeName(s)) == NormalizeName(s).
func NormalizeName(text string) string {
	asciiOnly := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	stripped, _, err := transform.String(asciiOnly, text)
	if err != nil {
		stripped = text
	}
	stripped = nonAlphanumeric.ReplaceAllString(stripped, "")
	stripped = whitespace.ReplaceAllString(stripped, "_")
	return strings.ToLower(stripped)
}

// FileBase returns NormalizeName(title), or fallback when nothing survives
// normalization.
func FileBase(title, fallback string) string {
	if base := NormalizeName(title); base != "" {
		return base
	}
	return fallback
}
