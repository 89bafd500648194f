package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackName = "resume"

// SanitizeFilename folds diacritics, lower-cases the name and replaces every
// character outside [a-z0-9] with an underscore.
func SanitizeFilename(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return fallbackName
	}
	return b.String()
}

// ResumeFilename is SanitizeFilename with the .pdf extension.
func ResumeFilename(candidateName string) string {
	return SanitizeFilename(candidateName) + ".pdf"
}
