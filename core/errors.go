package core

import (
	"errors"
	"fmt"
)

var (
	ErrPtyAllocation = errors.New("cannot allocate pseudo-terminal")
	ErrSpawn         = errors.New("cannot spawn process")
	ErrWriter        = errors.New("cannot acquire terminal writer")
	ErrWriteInput    = errors.New("cannot write to terminal")
	ErrNoSession     = errors.New("no terminal session")
	ErrNoRunner      = errors.New("no run command for file type")
	ErrFileRead      = errors.New("cannot read file")
	ErrFileWrite     = errors.New("cannot write file")
	ErrEmptyQuery    = errors.New("empty search query")
	ErrNoMatches     = errors.New("no matches")
	ErrCopyFailed    = errors.New("cannot copy to clipboard")

	ErrInvalidPosition = errors.New("invalid position")
	ErrStartOfLine     = errors.New("already at start of line")
	ErrEndOfLine       = errors.New("already at end of line")
	ErrStartOfBuffer   = errors.New("already at start of buffer")
	ErrEndOfBuffer     = errors.New("already at end of buffer")
)

type ErrorId int

const (
	ErrPtyAllocationId ErrorId = iota
	ErrSpawnId
	ErrWriterId
	ErrWriteInputId
	ErrNoSessionId
	ErrNoRunnerId
	ErrFileReadId
	ErrFileWriteId
	ErrEmptyQueryId
	ErrNoMatchesId
	ErrCopyFailedId
	ErrConfigId
	ErrInvalidPositionId
)

// Error pairs an error with the id consumers switch on.
type Error struct {
	id  ErrorId
	err error
}

// NewError wraps err with a sentinel context and id.
func NewError(id ErrorId, sentinel error, err error) *Error {
	if err == nil {
		return &Error{id: id, err: sentinel}
	}
	return &Error{id: id, err: fmt.Errorf("%w: %w", sentinel, err)}
}

func (e *Error) ID() ErrorId { return e.id }

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// ErrorID extracts the id from err, if it carries one.
func ErrorID(err error) (ErrorId, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.id, true
	}
	return 0, false
}
