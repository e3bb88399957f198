package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

// ContinuationMarker labels the soft-wrapped segments of a line.
const ContinuationMarker = "↪"

// LineIndex builds the line-number gutter. The result is cached by logical
// line count only: a width change without a line-count change keeps the old
// wrap markers until Invalidate is called or the line count changes.
type LineIndex struct {
	lines  int
	labels string
	valid  bool
}

func NewLineIndex() *LineIndex {
	return &LineIndex{}
}

// Labels returns one label per visual row joined by "\n": the line number on
// a line's first segment and ContinuationMarker on each wrapped segment.
// width is the viewport width in cells; width <= 0 disables wrapping.
func (li *LineIndex) Labels(buffer string, width int) string {
	lines := strings.Count(buffer, "\n") + 1
	if li.valid && li.lines == lines {
		return li.labels
	}

	li.labels = buildLabels(buffer, lines, width)
	li.lines = lines
	li.valid = true
	return li.labels
}

// Invalidate drops the cached labels.
func (li *LineIndex) Invalidate() {
	li.valid = false
	li.labels = ""
}

func buildLabels(buffer string, lines, width int) string {
	gutter := GutterWidth(lines) - 1

	var b strings.Builder
	row := 0
	for n, line := range strings.Split(buffer, "\n") {
		for seg := range Segments(strings.TrimSuffix(line, "\r"), width) {
			if row > 0 {
				b.WriteByte('\n')
			}
			if seg == 0 {
				fmt.Fprintf(&b, "%*d", gutter, n+1)
			} else {
				b.WriteString(strings.Repeat(" ", max(gutter-uniseg.StringWidth(ContinuationMarker), 0)))
				b.WriteString(ContinuationMarker)
			}
			row++
		}
	}
	return b.String()
}

// Segments is the number of visual rows a line occupies at width:
// ceil(displayWidth/width), at least 1.
func Segments(line string, width int) int {
	if width <= 0 {
		return 1
	}
	w := uniseg.StringWidth(line)
	return max(1, (w+width-1)/width)
}

// GutterWidth is the column count reserved for labels, including one
// separating space.
func GutterWidth(totalLines int) int {
	digits := len(strconv.Itoa(max(1, totalLines)))
	return min(max(4, digits)+1, 10)
}
