package core

import (
	"github.com/google/uuid"

	"github.com/ionut-t/kokona/internal/log"
)

type Signal any

// TerminalOutputSignal is sent after the reader appended output for a session.
type TerminalOutputSignal struct {
	sessionID uuid.UUID
}

func NewTerminalOutputSignal(id uuid.UUID) TerminalOutputSignal {
	return TerminalOutputSignal{sessionID: id}
}

func (s TerminalOutputSignal) Value() uuid.UUID {
	return s.sessionID
}

// TerminalExitedSignal is sent once the reader of a session stopped (EOF or read error).
type TerminalExitedSignal struct {
	sessionID uuid.UUID
}

func NewTerminalExitedSignal(id uuid.UUID) TerminalExitedSignal {
	return TerminalExitedSignal{sessionID: id}
}

func (s TerminalExitedSignal) Value() uuid.UUID {
	return s.sessionID
}

type ErrorSignal struct {
	id  ErrorId
	err error
}

func (e ErrorSignal) Value() (id ErrorId, err error) {
	return e.id, e.err
}

// Dispatcher delivers signals from background goroutines to the UI loop.
// Sends never block; a full channel drops the signal.
type Dispatcher struct {
	updateSignal chan Signal
}

func NewDispatcher(size int) *Dispatcher {
	return &Dispatcher{updateSignal: make(chan Signal, size)}
}

func (d *Dispatcher) DispatchSignal(signal Signal) {
	if d == nil {
		return
	}
	select {
	case d.updateSignal <- signal:
	default: // Ignore if the channel is full
	}
}

func (d *Dispatcher) DispatchError(id ErrorId, err error) {
	if d == nil {
		return
	}
	select {
	case d.updateSignal <- ErrorSignal{id, err}:
	default:
		log.Warn(log.CatUI, "channel is full, unable to send error signal", "error", err)
	}
}

// GetUpdateSignalChan returns the read side for the UI.
func (d *Dispatcher) GetUpdateSignalChan() <-chan Signal {
	return d.updateSignal
}
