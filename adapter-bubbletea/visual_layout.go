package adapter_bubbletea

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/ionut-t/kokona/core"
	"github.com/ionut-t/kokona/highlighter"
)

const tabWidth = 4

var tabSpaces = strings.Repeat(" ", tabWidth)

// lineNumberWidth is the gutter width including the separating space.
func (m *Model) lineNumberWidth() int {
	if !m.showLineNumbers {
		return 0
	}
	return core.GutterWidth(m.buffer.LineCount())
}

// textWidth is the number of cells available for buffer text.
func (m *Model) textWidth() int {
	return max(m.width-m.lineNumberWidth(), 1)
}

// displayLine is a buffer line as it appears on screen.
func displayLine(line string) string {
	return strings.ReplaceAll(strings.TrimSuffix(line, "\r"), "\t", tabSpaces)
}

// scrollToCursor adjusts topLine so every visual row of the cursor line
// up to the cursor fits in the editor area.
func (m *Model) scrollToCursor() {
	row := m.buffer.GetCursor().Position.Row
	if row < m.topLine {
		m.topLine = row
	}

	height := m.editorHeight()
	width := m.textWidth()
	lines := m.buffer.GetLines()

	rows := 0
	for i := m.topLine; i <= row && i < len(lines); i++ {
		rows += core.Segments(displayLine(lines[i]), width)
	}
	for rows > height && m.topLine < row {
		rows -= core.Segments(displayLine(lines[m.topLine]), width)
		m.topLine++
	}

	m.topLine = min(max(m.topLine, 0), max(len(lines)-1, 0))
}

// styledSpans runs the per-tick pipeline: highlight, overlay search matches,
// then mark the cursor cell.
func (m *Model) styledSpans(content string) []highlighter.Span {
	spans := m.highlighter.Spans(content)

	if m.search.IsOpen() {
		spans = core.ApplyMatches(spans, m.search.Matches(), m.search.CurrentIndex(), m.matchColors)
	}

	return m.applyCursor(spans, content)
}

func (m *Model) cursorStyle(s highlighter.Style) highlighter.Style {
	bg := m.highlighter.DefaultStyle()
	s.Foreground, s.Background = bg.Background, s.Foreground
	if !bg.HasBackground {
		s.Foreground = highlighter.Color{}
	}
	s.HasBackground = true
	return s
}

// applyCursor reverses the cell under the cursor. At a line end or the end
// of the buffer a blank cell is inserted instead.
func (m *Model) applyCursor(spans []highlighter.Span, content string) []highlighter.Span {
	if m.focus != focusEditor && m.focus != focusSearch {
		return spans
	}

	offset := m.buffer.Offset(m.buffer.GetCursor().Position)
	if offset < len(content) && content[offset] != '\n' && content[offset] != '\r' {
		_, size := utf8.DecodeRuneInString(content[offset:])
		return highlighter.Restyle(spans, offset, offset+size, m.cursorStyle)
	}

	return insertSpan(spans, offset, highlighter.Span{
		Style: m.cursorStyle(m.highlighter.DefaultStyle()),
		Text:  " ",
	})
}

// insertSpan places sp at byte offset, splitting the span that covers it.
func insertSpan(spans []highlighter.Span, offset int, sp highlighter.Span) []highlighter.Span {
	out := make([]highlighter.Span, 0, len(spans)+2)
	pos := 0
	inserted := false

	for _, cur := range spans {
		end := pos + len(cur.Text)
		if !inserted && offset >= pos && offset < end {
			if offset > pos {
				out = append(out, highlighter.Span{Style: cur.Style, Text: cur.Text[:offset-pos]})
			}
			out = append(out, sp)
			cur.Text = cur.Text[offset-pos:]
			inserted = true
		}
		out = append(out, cur)
		pos = end
	}

	if !inserted {
		out = append(out, sp)
	}
	return out
}

// splitLines breaks spans at newlines. The result has one entry per buffer
// line; tabs are expanded and carriage returns dropped.
func splitLines(spans []highlighter.Span) [][]highlighter.Span {
	lines := [][]highlighter.Span{nil}

	for _, sp := range spans {
		for i, part := range strings.Split(sp.Text, "\n") {
			if i > 0 {
				lines = append(lines, nil)
			}
			part = strings.ReplaceAll(strings.ReplaceAll(part, "\r", ""), "\t", tabSpaces)
			if part == "" {
				continue
			}
			last := len(lines) - 1
			lines[last] = append(lines[last], highlighter.Span{Style: sp.Style, Text: part})
		}
	}
	return lines
}

// gutterGroups returns the labels of each buffer line from topLine on,
// one entry per visual row of that line.
func (m *Model) gutterGroups(content string) [][]string {
	var display strings.Builder
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			display.WriteByte('\n')
		}
		display.WriteString(displayLine(line))
	}

	var groups [][]string
	logical := -1
	for _, label := range strings.Split(m.lineIndex.Labels(display.String(), m.textWidth()), "\n") {
		if strings.TrimSpace(label) != core.ContinuationMarker {
			logical++
			if logical >= m.topLine {
				groups = append(groups, nil)
			}
		}
		if logical >= m.topLine && len(groups) > 0 {
			groups[len(groups)-1] = append(groups[len(groups)-1], label)
		}
	}
	return groups
}

func (m *Model) renderEditor() string {
	height := m.editorHeight()
	width := m.textWidth()
	content := m.buffer.GetCurrentContent()
	lines := splitLines(m.styledSpans(content))

	var groups [][]string
	gutterWidth := m.lineNumberWidth() - 1
	if m.showLineNumbers {
		groups = m.gutterGroups(content)
	}
	cursorRow := m.buffer.GetCursor().Position.Row
	blank := strings.Repeat(" ", max(gutterWidth, 0))

	rows := make([]string, 0, height)
	gutter := make([]string, 0, height)
	for i := m.topLine; i < len(lines) && len(rows) < height; i++ {
		var group []string
		if n := i - m.topLine; n < len(groups) {
			group = groups[n]
		}
		style := m.theme.LineNumberStyle
		if i == cursorRow {
			style = m.theme.CurrentLineNumberStyle
		}

		rendered := ansi.Hardwrap(highlighter.Render(lines[i]), width, true)
		for k, row := range strings.Split(rendered, "\n") {
			if len(rows) == height {
				break
			}
			rows = append(rows, row)
			if k < len(group) {
				gutter = append(gutter, style.Render(group[k]))
			} else {
				gutter = append(gutter, blank)
			}
		}
	}

	text := lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).
		Render(strings.Join(rows, "\n"))

	if !m.showLineNumbers {
		return text
	}

	for len(gutter) < height {
		gutter = append(gutter, blank)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(gutter, "\n"), " ", text)
}
