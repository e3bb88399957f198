package core

// Cursor represents the current position for editing operations
type Cursor struct {
	Position  Position
	Preferred int // column kept across vertical moves
}

func (c *Cursor) clampCol(buffer Buffer) {
	c.Position.Col = min(max(c.Position.Col, 0), buffer.LineRuneCount(c.Position.Row))
}

// MoveLeft moves the cursor left by count runes within the line.
func (c *Cursor) MoveLeft(buffer Buffer, count int) error {
	for range count {
		if c.Position.Col <= 0 {
			return ErrStartOfLine
		}
		c.Position.Col--
	}
	c.clampCol(buffer)
	c.Preferred = c.Position.Col
	return nil
}

// MoveRight moves the cursor right by count runes, up to one past the last rune.
func (c *Cursor) MoveRight(buffer Buffer, count int) error {
	lineLen := buffer.LineRuneCount(c.Position.Row)
	for range count {
		if c.Position.Col >= lineLen {
			return ErrEndOfLine
		}
		c.Position.Col++
	}
	c.Preferred = c.Position.Col
	return nil
}

// MoveUp moves the cursor up by count lines, keeping the preferred column where the line allows.
func (c *Cursor) MoveUp(buffer Buffer, count int) error {
	if c.Position.Row <= 0 {
		return ErrStartOfBuffer
	}
	c.Position.Row = max(c.Position.Row-count, 0)
	c.Position.Col = min(c.Preferred, buffer.LineRuneCount(c.Position.Row))
	return nil
}

// MoveDown moves the cursor down by count lines, keeping the preferred column where the line allows.
func (c *Cursor) MoveDown(buffer Buffer, count int) error {
	last := buffer.LineCount() - 1
	if c.Position.Row >= last {
		return ErrEndOfBuffer
	}
	c.Position.Row = min(c.Position.Row+count, last)
	c.Position.Col = min(c.Preferred, buffer.LineRuneCount(c.Position.Row))
	return nil
}

// MoveLeftOrUp moves left, wrapping to the end of the previous line.
func (c *Cursor) MoveLeftOrUp(buffer Buffer) error {
	if c.Position.Col > 0 {
		return c.MoveLeft(buffer, 1)
	}
	if c.Position.Row == 0 {
		return ErrStartOfBuffer
	}
	c.Position.Row--
	c.MoveToAfterLineEnd(buffer)
	return nil
}

// MoveRightOrDown moves right, wrapping to the start of the next line.
func (c *Cursor) MoveRightOrDown(buffer Buffer) error {
	if c.Position.Col < buffer.LineRuneCount(c.Position.Row) {
		return c.MoveRight(buffer, 1)
	}
	if c.Position.Row >= buffer.LineCount()-1 {
		return ErrEndOfBuffer
	}
	c.Position.Row++
	c.MoveToLineStart()
	return nil
}

// MoveToLineStart moves the cursor to the start of the current line (col 0)
func (c *Cursor) MoveToLineStart() {
	c.Position.Col = 0
	c.Preferred = 0
}

// MoveToAfterLineEnd moves the cursor after the last rune of the current line.
func (c *Cursor) MoveToAfterLineEnd(buffer Buffer) {
	c.Position.Col = buffer.LineRuneCount(c.Position.Row)
	c.Preferred = c.Position.Col
}

// MoveToBufferStart moves the cursor to the start of the buffer
func (c *Cursor) MoveToBufferStart() {
	c.Position = Position{}
	c.Preferred = 0
}

// MoveToBufferEnd moves the cursor after the last rune of the buffer.
func (c *Cursor) MoveToBufferEnd(buffer Buffer) {
	c.Position.Row = max(buffer.LineCount()-1, 0)
	c.MoveToAfterLineEnd(buffer)
}
