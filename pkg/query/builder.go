// Package query compiles a core.Filter into a parameterized SQL predicate.
//
// The predicate is compiled once per request and reused verbatim for the
// count, the page fetch, the CSV export and the audio URL enumeration, so
// every consumer sees the identical filter. Literal values always travel as
// bound parameters; caller input is never interpolated into query text.
package query

import (
	"sort"
	"strings"
)

// Predicate is an opaque conjunction of conditions plus their bound
// parameter values, safe to hand to database/sql query primitives.
type Predicate struct {
	conds []string
	args  []any
}

// Where returns the predicate as a WHERE clause, or the empty string when
// there are no conditions (match all rows).
func (p *Predicate) Where() string {
	if len(p.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.conds, " AND ")
}

// Args returns the bound parameter values, in placeholder order.
func (p *Predicate) Args() []any {
	out := make([]any, len(p.args))
	copy(out, p.args)
	return out
}

// Empty reports whether the predicate matches all rows.
func (p *Predicate) Empty() bool {
	return len(p.conds) == 0
}

// Compile turns a search phrase and a playlist allow-list into a Predicate.
// Compilation is deterministic: the same inputs always produce an equivalent
// predicate.
//
// The phrase condition matches the phrase as a contiguous sequence of
// whitespace-separated tokens, case-insensitively, bounded by non-word
// characters or field edges, in either the transcript or the pos_tags
// column. That is exactly FTS5 phrase semantics under the unicode61
// tokenizer, so the condition is an FTS5 subquery with the phrase bound to
// MATCH. A phrase with no indexable tokens (punctuation only) is rejected by
// FTS5 at execution time and surfaces as a query execution error.
func Compile(text string, playlists []string) *Predicate {
	p := &Predicate{}

	if phrase := NormalizePhrase(text); phrase != "" {
		p.conds = append(p.conds,
			"r.rowid IN (SELECT rowid FROM records_fts WHERE records_fts MATCH ?)")
		p.args = append(p.args, ftsPhraseQuery(phrase))
	}

	if len(playlists) > 0 {
		// Sorted copy so equal sets compile to equal predicates.
		values := make([]string, len(playlists))
		copy(values, playlists)
		sort.Strings(values)

		placeholders := strings.Repeat("?, ", len(values)-1) + "?"
		p.conds = append(p.conds, "r.playlist IN ("+placeholders+")")
		for _, v := range values {
			p.args = append(p.args, v)
		}
	}

	return p
}

// surroundingQuotes are stripped from the phrase edges: straight and curly
// double and single quotes, matching what search boxes tend to paste in.
const surroundingQuotes = "\"'“”‘’"

// NormalizePhrase trims surrounding whitespace and quote characters and
// collapses internal whitespace runs to single spaces. An all-whitespace or
// all-quote phrase normalizes to the empty string, which compiles to no
// text condition at all.
func NormalizePhrase(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, surroundingQuotes)
	return strings.Join(strings.Fields(text), " ")
}

// ftsPhraseQuery builds the FTS5 match expression for a normalized phrase:
// a quoted phrase restricted to the transcript and pos_tags columns. The
// whole expression is bound as a single parameter; internal double quotes
// are doubled per FTS5 string syntax.
func ftsPhraseQuery(phrase string) string {
	escaped := strings.ReplaceAll(phrase, `"`, `""`)
	return `{transcript pos_tags} : "` + escaped + `"`
}
