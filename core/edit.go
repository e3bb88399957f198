package core

import (
	"errors"
)

// Edit applies one keystroke to buffer as a plain, non-modal editor does:
// printable runes, Enter and Tab insert; Backspace and Delete remove;
// navigation keys move the cursor. pageHeight is the number of lines
// PageUp/PageDown move. It reports whether the content changed.
// Running into a buffer or line boundary is not an error.
func Edit(buffer Buffer, key KeyEvent, pageHeight int) (bool, error) {
	cursor := buffer.GetCursor()
	row, col := cursor.Position.Row, cursor.Position.Col

	insert := func(runes ...rune) (bool, error) {
		if err := buffer.InsertRunesAt(row, col, runes); err != nil {
			return false, NewError(ErrInvalidPositionId, ErrInvalidPosition, err)
		}
		for _, r := range runes {
			if r == '\n' {
				cursor.Position.Row++
				cursor.Position.Col = 0
			} else {
				cursor.Position.Col++
			}
		}
		cursor.Preferred = cursor.Position.Col
		buffer.SetCursor(cursor)
		return true, nil
	}

	var moveErr error
	switch key.Key {
	case KeyEnter:
		return insert('\n')

	case KeyTab:
		return insert('\t')

	case KeySpace:
		return insert(' ')

	case KeyBackspace:
		if col == 0 && row == 0 {
			return false, nil
		}
		if col == 0 {
			col = buffer.LineRuneCount(row - 1)
			row--
		} else {
			col--
		}
		if err := buffer.DeleteRunesAt(row, col, 1); err != nil {
			return false, NewError(ErrInvalidPositionId, ErrInvalidPosition, err)
		}
		buffer.SetCursor(Cursor{Position: Position{Row: row, Col: col}, Preferred: col})
		return true, nil

	case KeyDelete:
		if col == buffer.LineRuneCount(row) && row == buffer.LineCount()-1 {
			return false, nil
		}
		if err := buffer.DeleteRunesAt(row, col, 1); err != nil {
			return false, NewError(ErrInvalidPositionId, ErrInvalidPosition, err)
		}
		return true, nil

	case KeyLeft:
		moveErr = cursor.MoveLeftOrUp(buffer)
	case KeyRight:
		moveErr = cursor.MoveRightOrDown(buffer)
	case KeyUp:
		moveErr = cursor.MoveUp(buffer, 1)
	case KeyDown:
		moveErr = cursor.MoveDown(buffer, 1)
	case KeyPageUp:
		moveErr = cursor.MoveUp(buffer, max(pageHeight, 1))
	case KeyPageDown:
		moveErr = cursor.MoveDown(buffer, max(pageHeight, 1))

	case KeyHome:
		if key.Modifiers&ModCtrl != 0 {
			cursor.MoveToBufferStart()
		} else {
			cursor.MoveToLineStart()
		}
	case KeyEnd:
		if key.Modifiers&ModCtrl != 0 {
			cursor.MoveToBufferEnd(buffer)
		} else {
			cursor.MoveToAfterLineEnd(buffer)
		}

	default:
		if key.Rune != 0 && key.Modifiers&(ModCtrl|ModAlt) == 0 {
			return insert(key.Rune)
		}
		return false, nil
	}

	if moveErr != nil && !isBoundary(moveErr) {
		return false, moveErr
	}
	buffer.SetCursor(cursor)
	return false, nil
}

func isBoundary(err error) bool {
	return errors.Is(err, ErrStartOfLine) || errors.Is(err, ErrEndOfLine) ||
		errors.Is(err, ErrStartOfBuffer) || errors.Is(err, ErrEndOfBuffer)
}

// MoveCursorTo places the cursor at a byte offset, e.g. the start of a search match.
func MoveCursorTo(buffer Buffer, offset int) {
	pos := buffer.PositionAt(offset)
	buffer.SetCursor(Cursor{Position: pos, Preferred: pos.Col})
}
