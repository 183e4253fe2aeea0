// Package match implements the player identity resolution engine: a staged
// exact/prefix/token/fuzzy matching cascade over a roster index, with the
// mononym and ambiguity policy that decides when a match is returned as a
// firm answer. The engine is stateless; every call is a pure function of the
// query and the index snapshot.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Query is a normalized resolution query: the canonical string plus its
// whitespace-delimited tokens.
type Query struct {
	Text   string
	Tokens []string
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a raw name: compatibility decomposition, combining
// marks removed, lowercased, whitespace collapsed and trimmed. Idempotent,
// and any input (including empty) yields a valid Query.
func Normalize(raw string) Query {
	text, _, _ := transform.String(stripMarks, strings.ToLower(raw))
	tokens := strings.Fields(text)
	return Query{Text: strings.Join(tokens, " "), Tokens: tokens}
}

// NormalizeName is the roster.NormalizeFunc form of Normalize, used when
// loading snapshots so index keys agree with query keys.
func NormalizeName(raw string) (string, []string) {
	q := Normalize(raw)
	return q.Text, q.Tokens
}
