package core

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ionut-t/kokona/internal/log"
)

// Match is a half-open byte range [Start, End) into the searched buffer.
type Match struct {
	Start int
	End   int
}

// Len returns the match length in bytes.
func (m Match) Len() int { return m.End - m.Start }

// Search holds the query, the matches it produced against the last buffer it
// was given, and the match cursor. Matches go stale when the buffer changes;
// callers must call FindMatches on every buffer change while the search is open.
type Search struct {
	open          bool
	query         string
	caseSensitive bool
	current       int
	matches       []Match
}

func NewSearch() *Search {
	return &Search{}
}

// Open marks the search as open and recomputes matches against buffer.
func (s *Search) Open(buffer string) {
	s.open = true
	s.FindMatches(buffer)
}

// Close hides the search. The query is kept for the next Open.
func (s *Search) Close() {
	s.open = false
}

func (s *Search) IsOpen() bool {
	return s.open
}

// SetQuery replaces the query, recomputes and moves the cursor to the first match.
func (s *Search) SetQuery(query string, caseSensitive bool, buffer string) {
	s.query = query
	s.caseSensitive = caseSensitive
	s.current = 0
	s.FindMatches(buffer)
}

// SetCaseSensitive toggles case sensitivity and recomputes. The cursor is kept
// where possible.
func (s *Search) SetCaseSensitive(caseSensitive bool, buffer string) {
	s.caseSensitive = caseSensitive
	s.FindMatches(buffer)
}

// FindMatches recomputes all matches of the current query in buffer.
// An empty query yields no matches.
func (s *Search) FindMatches(buffer string) {
	s.matches = nil

	if s.query != "" {
		if s.caseSensitive {
			s.matches = findExact(s.matches, buffer, s.query)
		} else {
			s.matches = findFolded(s.matches, buffer, s.query)
		}
	}

	s.clampCurrent()

	log.Debug(log.CatSearch, "matches recomputed",
		"query_len", len(s.query),
		"case_sensitive", s.caseSensitive,
		"matches", len(s.matches))
}

func (s *Search) clampCurrent() {
	switch {
	case len(s.matches) == 0:
		s.current = 0
	case s.current >= len(s.matches):
		s.current = len(s.matches) - 1
	case s.current < 0:
		s.current = 0
	}
}

// Next moves the cursor forward, wrapping to the first match.
func (s *Search) Next() {
	if len(s.matches) == 0 {
		return
	}
	s.current = (s.current + 1) % len(s.matches)
}

// Prev moves the cursor backward, wrapping to the last match.
func (s *Search) Prev() {
	if len(s.matches) == 0 {
		return
	}
	if s.current == 0 {
		s.current = len(s.matches) - 1
	} else {
		s.current--
	}
}

// Current returns the match under the cursor.
func (s *Search) Current() (Match, bool) {
	if len(s.matches) == 0 {
		return Match{}, false
	}
	return s.matches[s.current], true
}

func (s *Search) CurrentIndex() int {
	return s.current
}

// Matches returns the matches in buffer order. The slice is owned by s.
func (s *Search) Matches() []Match {
	return s.matches
}

func (s *Search) Query() string {
	return s.query
}

func (s *Search) CaseSensitive() bool {
	return s.caseSensitive
}

// Summary renders the status line for the match list, e.g. "3 matches found (showing 1/3)".
func (s *Search) Summary() string {
	n := len(s.matches)
	if n == 0 {
		return "0 matches found"
	}
	return fmt.Sprintf("%d matches found (showing %d/%d)", n, s.current+1, n)
}

// Err reports why the search has nothing to show, if anything.
func (s *Search) Err() error {
	switch {
	case s.query == "":
		return ErrEmptyQuery
	case len(s.matches) == 0:
		return fmt.Errorf("%w for %q", ErrNoMatches, s.query)
	}
	return nil
}

// findExact appends every non-overlapping occurrence of query, scanning left
// to right and resuming at the end of each match.
func findExact(matches []Match, buffer, query string) []Match {
	from := 0
	for from <= len(buffer) {
		idx := strings.Index(buffer[from:], query)
		if idx == -1 {
			break
		}
		start := from + idx
		end := start + len(query)
		matches = append(matches, Match{Start: start, End: end})
		from = end
	}
	return matches
}

// findFolded is the case-insensitive scan. Offsets always refer to buffer,
// so lower-casing that changes byte lengths falls back to a rune-wise walk.
func findFolded(matches []Match, buffer, query string) []Match {
	queryLower := strings.ToLower(query)

	if isASCII(buffer) && isASCII(query) {
		lower := strings.ToLower(buffer)
		return findExact(matches, lower, queryLower)
	}

	for i := 0; i < len(buffer); {
		if end, ok := matchFoldedAt(buffer, i, queryLower); ok {
			matches = append(matches, Match{Start: i, End: end})
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(buffer[i:])
		i += max(size, 1)
	}
	return matches
}

// matchFoldedAt reports whether the lower-cased needle matches haystack at
// start, and the end of the match in haystack.
func matchFoldedAt(haystack string, start int, needleLower string) (int, bool) {
	i := start
	for _, nr := range needleLower {
		if i >= len(haystack) {
			return 0, false
		}
		hr, size := utf8.DecodeRuneInString(haystack[i:])
		if unicode.ToLower(hr) != nr {
			return 0, false
		}
		i += max(size, 1)
	}
	return i, i > start
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
