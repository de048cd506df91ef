package query

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Terms is a query split by boolean prefix
type Terms struct {
	Required []string
	Excluded []string
	Optional []string
}

// ParseQuery splits raw on whitespace and classifies each token
func ParseQuery(raw string) Terms {
	var t Terms
	for _, tok := range strings.Fields(norm.NFC.String(raw)) {
		switch {
		case len(tok) > 1 && tok[0] == '+':
			t.Required = append(t.Required, tok[1:])
		case len(tok) > 1 && tok[0] == '-':
			t.Excluded = append(t.Excluded, tok[1:])
		default:
			t.Optional = append(t.Optional, tok)
		}
	}
	return t
}

// Cleaned returns the optional terms joined by single spaces
func (t Terms) Cleaned() string {
	return strings.Join(t.Optional, " ")
}

// HasBoolean reports whether any required or excluded term is present
func (t Terms) HasBoolean() bool {
	return len(t.Required) > 0 || len(t.Excluded) > 0
}

// IsEmpty reports whether the query had no terms at all
func (t Terms) IsEmpty() bool {
	return len(t.Optional) == 0 && !t.HasBoolean()
}

// MatchBoolean reports whether text contains every required term and none
// of the excluded ones.
func (t Terms) MatchBoolean(text string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, term := range t.Required {
		if !strings.Contains(text, fold(term, caseSensitive)) {
			return false
		}
	}
	for _, term := range t.Excluded {
		if strings.Contains(text, fold(term, caseSensitive)) {
			return false
		}
	}
	return true
}

// ContainsAll reports whether text contains every optional term
func (t Terms) ContainsAll(text string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, term := range t.Optional {
		if !strings.Contains(text, fold(term, caseSensitive)) {
			return false
		}
	}
	return true
}

func fold(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}
