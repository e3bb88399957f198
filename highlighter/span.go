package highlighter

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/charmbracelet/lipgloss"
)

// Color is an RGB colour with independent 0-255 channels.
type Color struct {
	R, G, B uint8
}

// Hex returns the colour as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor parses "#rgb" or "#rrggbb".
func ParseColor(s string) (Color, error) {
	c := chroma.ParseColour(s)
	if !c.IsSet() {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	return fromChroma(c), nil
}

func fromChroma(c chroma.Colour) Color {
	return Color{R: c.Red(), G: c.Green(), B: c.Blue()}
}

// Font is read from settings on every highlight call.
type Font struct {
	Family string
	Size   float64
}

// Style is the visual style of a span. It is comparable so adjacent spans
// with equal styles can be merged.
type Style struct {
	Foreground    Color
	Background    Color
	HasBackground bool
	Bold          bool
	Italic        bool
	Underline     bool
	Font          Font
}

// Lipgloss converts the style for terminal rendering.
func (s Style) Lipgloss() lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Foreground.Hex()))
	if s.HasBackground {
		style = style.Background(lipgloss.Color(s.Background.Hex()))
	}
	if s.Bold {
		style = style.Bold(true)
	}
	if s.Italic {
		style = style.Italic(true)
	}
	if s.Underline {
		style = style.Underline(true)
	}
	return style
}

// Span is a contiguous run of text sharing one style.
type Span struct {
	Style Style
	Text  string
}

// Concat joins the text of spans. For any highlighter output it equals the
// highlighted buffer.
func Concat(spans []Span) string {
	var b strings.Builder
	for _, sp := range spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// appendSpan merges sp into the last span when the styles match.
func appendSpan(spans []Span, sp Span) []Span {
	if sp.Text == "" {
		return spans
	}
	if n := len(spans); n > 0 && spans[n-1].Style == sp.Style {
		spans[n-1].Text += sp.Text
		return spans
	}
	return append(spans, sp)
}

// Restyle applies fn to the byte range [start, end) of the text covered by
// spans, splitting spans at the range boundaries. Text outside the range keeps
// its style. The input slice is not modified.
func Restyle(spans []Span, start, end int, fn func(Style) Style) []Span {
	if start >= end {
		return spans
	}

	out := make([]Span, 0, len(spans)+2)
	offset := 0
	for _, sp := range spans {
		spStart, spEnd := offset, offset+len(sp.Text)
		offset = spEnd

		if spEnd <= start || spStart >= end {
			out = append(out, sp)
			continue
		}

		lo := max(start, spStart) - spStart
		hi := min(end, spEnd) - spStart
		if lo > 0 {
			out = append(out, Span{Style: sp.Style, Text: sp.Text[:lo]})
		}
		out = append(out, Span{Style: fn(sp.Style), Text: sp.Text[lo:hi]})
		if hi < len(sp.Text) {
			out = append(out, Span{Style: sp.Style, Text: sp.Text[hi:]})
		}
	}
	return out
}

// Render renders spans for a terminal. Newlines are emitted raw between
// styled pieces so lipgloss never pads lines to a common width.
func Render(spans []Span) string {
	var b strings.Builder
	styles := make(map[Style]lipgloss.Style)

	for _, sp := range spans {
		style, ok := styles[sp.Style]
		if !ok {
			style = sp.Style.Lipgloss()
			styles[sp.Style] = style
		}

		for i, part := range strings.Split(sp.Text, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			part = strings.TrimSuffix(part, "\r")
			if part != "" {
				b.WriteString(style.Render(part))
			}
		}
	}
	return b.String()
}
