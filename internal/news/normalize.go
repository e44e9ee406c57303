package news

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle returns the canonical identity key of a title: NFKC
// composition, format and control characters removed, whitespace runs
// collapsed to one space, trimmed.
func NormalizeTitle(title string) string {
	composed := norm.NFKC.String(title)

	var b strings.Builder
	b.Grow(len(composed))
	for _, r := range composed {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Cc, r):
			continue
		default:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// SameTitle reports whether two titles normalize to the same key.
func SameTitle(a, b string) bool {
	return NormalizeTitle(a) == NormalizeTitle(b)
}
