package core

import (
	"github.com/ionut-t/kokona/highlighter"
)

// MatchColors are the backgrounds painted under search matches.
type MatchColors struct {
	Current highlighter.Color
	Other   highlighter.Color
}

// DefaultMatchColors is bright yellow for the current match and pale yellow for the rest.
var DefaultMatchColors = MatchColors{
	Current: highlighter.Color{R: 255, G: 255, B: 0},
	Other:   highlighter.Color{R: 255, G: 255, B: 180},
}

// ApplyMatches paints match backgrounds over highlight spans. A span that
// partially overlaps a match is split into up to three parts; only the part
// inside the match changes, and its foreground is kept. current is the index
// of the match under the cursor, or -1 for none. matches must be sorted and
// non-overlapping, as FindMatches produces them.
func ApplyMatches(spans []highlighter.Span, matches []Match, current int, colors MatchColors) []highlighter.Span {
	if len(matches) == 0 {
		return spans
	}

	out := make([]highlighter.Span, 0, len(spans)+2*len(matches))
	offset := 0
	mi := 0

	for _, sp := range spans {
		spStart, spEnd := offset, offset+len(sp.Text)
		offset = spEnd

		pos := spStart
		for mi < len(matches) && pos < spEnd {
			m := matches[mi]
			if m.End <= pos {
				mi++
				continue
			}
			if m.Start >= spEnd {
				break
			}

			if m.Start > pos {
				out = append(out, highlighter.Span{Style: sp.Style, Text: sp.Text[pos-spStart : m.Start-spStart]})
				pos = m.Start
			}

			end := min(m.End, spEnd)
			style := sp.Style
			style.HasBackground = true
			style.Background = colors.Other
			if mi == current {
				style.Background = colors.Current
			}
			out = append(out, highlighter.Span{Style: style, Text: sp.Text[pos-spStart : end-spStart]})
			pos = end

			if m.End <= spEnd {
				mi++
			}
		}

		if pos < spEnd {
			out = append(out, highlighter.Span{Style: sp.Style, Text: sp.Text[pos-spStart:]})
		}
	}

	return out
}
