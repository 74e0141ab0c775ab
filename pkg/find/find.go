// Package find implements plain-text find and replace over a document buffer.
// Offsets are byte offsets into the text.
package find

import (
	"errors"
	"regexp"
)

// ErrEmptyQuery is returned when searching for the empty string.
var ErrEmptyQuery = errors.New("empty search query")

// Options controls a search.
type Options struct {
	CaseSensitive bool
	// Backward searches for the last match ending at or before the start offset.
	Backward bool
}

// Match is the half-open byte range [Start, End) of an occurrence.
type Match struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func compile(query string, caseSensitive bool) (*regexp.Regexp, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	expr := regexp.QuoteMeta(query)
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// Find returns the next occurrence of query starting at from. Searches do
// not wrap around; ok is false when there is no further match.
func Find(text, query string, from int, opts Options) (m Match, ok bool, err error) {
	re, err := compile(query, opts.CaseSensitive)
	if err != nil {
		return Match{}, false, err
	}
	from = max(0, min(from, len(text)))

	if opts.Backward {
		for _, loc := range re.FindAllStringIndex(text[:from], -1) {
			m, ok = Match{Start: loc[0], End: loc[1]}, true
		}
		return m, ok, nil
	}

	loc := re.FindStringIndex(text[from:])
	if loc == nil {
		return Match{}, false, nil
	}
	return Match{Start: from + loc[0], End: from + loc[1]}, true, nil
}

// All returns every non-overlapping occurrence of query.
func All(text, query string, caseSensitive bool) ([]Match, error) {
	re, err := compile(query, caseSensitive)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, loc := range re.FindAllStringIndex(text, -1) {
		out = append(out, Match{Start: loc[0], End: loc[1]})
	}
	return out, nil
}

// Replace substitutes repl for the matched range.
func Replace(text string, m Match, repl string) string {
	return text[:m.Start] + repl + text[m.End:]
}

// ReplaceAll substitutes repl for every occurrence of query and reports how
// many were replaced.
func ReplaceAll(text, query, repl string, caseSensitive bool) (string, int, error) {
	re, err := compile(query, caseSensitive)
	if err != nil {
		return text, 0, err
	}
	n := len(re.FindAllStringIndex(text, -1))
	if n == 0 {
		return text, 0, nil
	}
	return re.ReplaceAllLiteralString(text, repl), n, nil
}
