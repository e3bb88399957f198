package core

import (
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1)
	id := uuid.New()

	d.DispatchSignal(NewTerminalOutputSignal(id))
	d.DispatchSignal(NewTerminalExitedSignal(id))
	d.DispatchError(ErrSpawnId, ErrSpawn)

	sig := <-d.GetUpdateSignalChan()
	out, ok := sig.(TerminalOutputSignal)
	require.True(t, ok)
	require.Equal(t, id, out.Value())

	select {
	case extra := <-d.GetUpdateSignalChan():
		t.Fatalf("unexpected signal %#v", extra)
	default:
	}
}

func TestDispatcher_ErrorSignal(t *testing.T) {
	d := NewDispatcher(4)
	d.DispatchError(ErrNoRunnerId, ErrNoRunner)

	sig := <-d.GetUpdateSignalChan()
	errSig, ok := sig.(ErrorSignal)
	require.True(t, ok)

	id, err := errSig.Value()
	require.Equal(t, ErrNoRunnerId, id)
	require.ErrorIs(t, err, ErrNoRunner)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	require.NotPanics(t, func() {
		d.DispatchSignal(NewTerminalOutputSignal(uuid.Nil))
		d.DispatchError(ErrSpawnId, ErrSpawn)
	})
}

func TestError_WrapsSentinelAndCause(t *testing.T) {
	err := NewError(ErrPtyAllocationId, ErrPtyAllocation, os.ErrPermission)

	require.ErrorIs(t, err, ErrPtyAllocation)
	require.ErrorIs(t, err, os.ErrPermission)
	require.Equal(t, "cannot allocate pseudo-terminal: permission denied", err.Error())

	id, ok := ErrorID(err)
	require.True(t, ok)
	require.Equal(t, ErrPtyAllocationId, id)
}

func TestError_WithoutCause(t *testing.T) {
	err := NewError(ErrNoSessionId, ErrNoSession, nil)
	require.Equal(t, ErrNoSession.Error(), err.Error())
	require.Equal(t, ErrNoSessionId, err.ID())
}

func TestErrorID_PlainError(t *testing.T) {
	_, ok := ErrorID(errors.New("plain"))
	require.False(t, ok)
}
