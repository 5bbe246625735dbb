package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// SplitURLs normalizes a user-supplied URL list. Commas (ASCII or
// full-width) and any whitespace act as separators; empty entries are
// dropped.
func SplitURLs(raw string) []string {
	folded := width.Fold.String(raw)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Ternary returns a if cond is true, b otherwise.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
