package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ/Đ carry a stroke, not a combining mark, so decomposition alone keeps them.
var strokeFold = strings.NewReplacer("đ", "d", "Đ", "d")

// Normalize folds text for matching: lower case, canonical decomposition,
// combining marks removed, đ folded to d, surrounding space trimmed.
// "Cà phê sữa đá" and "ca phe sua da" normalize to the same string.
func Normalize(s string) string {
	s = strings.ToLower(s)
	// The second NFD restores canonical order among marks that survive removal.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFD)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(strokeFold.Replace(folded))
}

// containsWord reports whether needle occurs in hay delimited on both sides by
// a non word character or the string boundary.
func containsWord(hay, needle string) bool {
	if needle == "" {
		return false
	}
	for offset := 0; offset <= len(hay)-len(needle); {
		i := strings.Index(hay[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(hay, start) && boundaryAfter(hay, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
