package query

import (
	"strings"
	"unicode"
)

// BuildMatchExpression turns tokens into an FTS5 prefix query: each token is
// quoted with embedded quotes doubled, stripped of "*", and suffixed with "*".
// Tokens with no letter or digit cannot match any FTS5 token and are dropped.
// The result is "" when nothing is left.
func BuildMatchExpression(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, "*", "")
		if !strings.ContainsFunc(tok, isWordRune) {
			continue
		}
		parts = append(parts, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"*`)
	}
	return strings.Join(parts, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// EscapeLike escapes LIKE wildcards so s matches literally under ESCAPE '\'
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
