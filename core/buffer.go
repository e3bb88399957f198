package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Position is a location in the buffer: zero-indexed line and rune column.
type Position struct {
	Row int
	Col int
}

// Buffer is the document being edited. Lines are split on "\n" only, so
// "\r" stays part of a line and the content round-trips byte for byte.
type Buffer interface {
	GetLines() []string
	GetLineRunes(lineNum int) []rune
	LineRuneCount(lineNum int) int
	GetSavedContent() string
	GetCurrentContent() string
	LineCount() int

	InsertRunesAt(row, col int, runes []rune) error
	DeleteRunesAt(row, col int, count int) error

	GetCursor() Cursor
	SetCursor(Cursor)

	// Offset converts a position to a byte offset into GetCurrentContent.
	Offset(pos Position) int
	// PositionAt converts a byte offset into a position, clamped to the buffer.
	PositionAt(offset int) Position

	IsModified() bool
	SaveContent()
	SetContent(content []byte)
	IsEmpty() bool
}

type textBuffer struct {
	lines        [][]rune
	cursor       Cursor
	savedContent string

	// content caches GetCurrentContent until the next edit.
	content string
	fresh   bool
}

// NewBuffer creates a new empty buffer
func NewBuffer() Buffer {
	return &textBuffer{
		lines: [][]rune{{}},
	}
}

// NewBufferFromBytes creates a buffer holding content, marked as saved.
func NewBufferFromBytes(content []byte) Buffer {
	b := &textBuffer{}
	b.SetContent(content)
	b.SaveContent()
	return b
}

func (b *textBuffer) IsEmpty() bool {
	return len(b.lines) == 1 && len(b.lines[0]) == 0
}

func (b *textBuffer) SetContent(content []byte) {
	parts := strings.Split(string(content), "\n")
	b.lines = make([][]rune, len(parts))
	for i, p := range parts {
		b.lines[i] = []rune(p)
	}
	b.fresh = false
	b.SetCursor(b.cursor)
}

func (b *textBuffer) GetLines() []string {
	lines := make([]string, len(b.lines))
	for i, r := range b.lines {
		lines[i] = string(r)
	}
	return lines
}

func (b *textBuffer) GetLineRunes(lineNum int) []rune {
	if lineNum < 0 || lineNum >= len(b.lines) {
		return nil
	}
	return b.lines[lineNum]
}

func (b *textBuffer) LineRuneCount(lineNum int) int {
	if lineNum < 0 || lineNum >= len(b.lines) {
		return 0
	}
	return len(b.lines[lineNum])
}

func (b *textBuffer) IsModified() bool {
	return b.savedContent != b.GetCurrentContent()
}

func (b *textBuffer) SaveContent() {
	b.savedContent = b.GetCurrentContent()
}

// GetCurrentContent returns the entire buffer content as a string
func (b *textBuffer) GetCurrentContent() string {
	if !b.fresh {
		b.content = strings.Join(b.GetLines(), "\n")
		b.fresh = true
	}
	return b.content
}

func (b *textBuffer) GetSavedContent() string {
	return b.savedContent
}

func (b *textBuffer) LineCount() int {
	return len(b.lines)
}

func (b *textBuffer) GetCursor() Cursor {
	return b.cursor
}

// SetCursor sets the cursor position, clamping it to the buffer. The column
// may sit one past the last rune of its line.
func (b *textBuffer) SetCursor(cursor Cursor) {
	cursor.Position.Row = min(max(cursor.Position.Row, 0), max(len(b.lines)-1, 0))
	cursor.Position.Col = min(max(cursor.Position.Col, 0), b.LineRuneCount(cursor.Position.Row))
	b.cursor = cursor
}

func (b *textBuffer) Offset(pos Position) int {
	pos.Row = min(max(pos.Row, 0), len(b.lines)-1)

	offset := 0
	for i := range pos.Row {
		offset += len(string(b.lines[i])) + 1
	}

	line := b.lines[pos.Row]
	col := min(max(pos.Col, 0), len(line))
	return offset + len(string(line[:col]))
}

func (b *textBuffer) PositionAt(offset int) Position {
	content := b.GetCurrentContent()
	offset = min(max(offset, 0), len(content))

	head := content[:offset]
	row := strings.Count(head, "\n")
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return Position{Row: row, Col: utf8.RuneCountInString(head[lineStart:])}
}

// InsertRunesAt inserts runes at the specified position. Newlines in runes split the line.
func (b *textBuffer) InsertRunesAt(row, col int, runes []rune) error {
	if row < 0 || row >= len(b.lines) {
		return fmt.Errorf("insert: %w: row %d out of bounds [0, %d)", ErrInvalidPosition, row, len(b.lines))
	}

	line := b.lines[row]
	if col < 0 || col > len(line) {
		return fmt.Errorf("insert: %w: col %d out of bounds [0, %d]", ErrInvalidPosition, col, len(line))
	}

	parts := strings.Split(string(runes), "\n")

	tail := append([]rune(nil), line[col:]...)
	first := append(append([]rune(nil), line[:col]...), []rune(parts[0])...)

	if len(parts) == 1 {
		b.lines[row] = append(first, tail...)
		b.fresh = false
		return nil
	}

	newLines := make([][]rune, 0, len(parts)-1)
	for _, p := range parts[1:] {
		newLines = append(newLines, []rune(p))
	}
	last := len(newLines) - 1
	newLines[last] = append(newLines[last], tail...)

	lines := make([][]rune, 0, len(b.lines)+len(newLines))
	lines = append(lines, b.lines[:row]...)
	lines = append(lines, first)
	lines = append(lines, newLines...)
	lines = append(lines, b.lines[row+1:]...)
	b.lines = lines
	b.fresh = false

	return nil
}

// DeleteRunesAt deletes count runes starting at the specified position. A line
// break counts as one rune, so deleting past the end of a line joins the next one.
func (b *textBuffer) DeleteRunesAt(row, col int, count int) error {
	if count <= 0 {
		return nil
	}

	if row < 0 || row >= len(b.lines) {
		return fmt.Errorf("delete: %w: row %d out of bounds [0, %d)", ErrInvalidPosition, row, len(b.lines))
	}
	if col < 0 || col > len(b.lines[row]) {
		return fmt.Errorf("delete: %w: col %d out of bounds [0, %d]", ErrInvalidPosition, col, len(b.lines[row]))
	}

	for count > 0 {
		line := b.lines[row]
		if col < len(line) {
			n := min(count, len(line)-col)
			b.lines[row] = append(append([]rune(nil), line[:col]...), line[col+n:]...)
			count -= n
			continue
		}

		if row+1 >= len(b.lines) {
			break
		}
		b.lines[row] = append(append([]rune(nil), line...), b.lines[row+1]...)
		b.lines = append(b.lines[:row+1], b.lines[row+2:]...)
		count--
	}

	b.fresh = false
	return nil
}
