// Package persian canonicalizes Persian text so stored entries and incoming
// questions are always compared on equal footing.
package persian

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var variantReplacer = strings.NewReplacer(
	"ي", "ی", // Arabic Yeh -> Persian Yeh
	"ك", "ک", // Arabic Kaf -> Persian Kaf
	"‌", " ", // zero-width non-joiner
)

// Normalize applies NFC composition, maps Arabic-script variant letters to
// their Persian equivalents, replaces zero-width non-joiners with spaces and
// collapses whitespace. Idempotent; empty input yields empty output.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = variantReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
