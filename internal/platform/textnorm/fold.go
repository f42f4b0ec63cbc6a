package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dStroke = strings.NewReplacer("đ", "d", "Đ", "D")

// ASCII strips Vietnamese diacritics and collapses whitespace:
// "Miền Nam" becomes "Mien Nam".
func ASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, dStroke.Replace(s))
	if err != nil {
		folded = s
	}
	folded = strings.Join(strings.Fields(folded), " ")
	if folded == "" {
		return strings.TrimSpace(s)
	}
	return folded
}

// Slug lower-cases the ASCII form and joins words with sep:
// "Bến Tre" becomes "ben_tre" for sep "_".
func Slug(s, sep string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(ASCII(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteString(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Key folds a label into a lookup key: "Giải Đặc Biệt" becomes "giai_dac_biet".
func Key(s string) string {
	return Slug(s, "_")
}
