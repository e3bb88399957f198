package terminal

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ionut-t/kokona/core"
)

const waitFor = 5 * time.Second

func requirePTY(t *testing.T) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	_ = tty.Close()
	_ = ptmx.Close()
}

func shellConfig() Config {
	cfg := DefaultConfig()
	cfg.Shell = "/bin/sh"
	return cfg
}

// pipeStarter feeds chunks through a pipe instead of a PTY and never starts cmd.
func pipeStarter(chunks ...string) Starter {
	return func(cmd *exec.Cmd, size *pty.Winsize) (*os.File, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		go func() {
			for _, c := range chunks {
				_, _ = w.WriteString(c)
				time.Sleep(10 * time.Millisecond)
			}
			_ = w.Close()
		}()
		return r, nil
	}
}

func TestBridge_ToggleOnOffLeavesNoSession(t *testing.T) {
	requirePTY(t)

	b := New(shellConfig())
	t.Cleanup(b.Close)

	require.NoError(t, b.Toggle(filepath.Join(t.TempDir(), "main.go")))
	require.Equal(t, Running, b.State())
	first := b.SessionID()
	require.NotEqual(t, uuid.Nil, first)

	require.NoError(t, b.Toggle(""))
	require.Equal(t, Closed, b.State())
	require.Equal(t, uuid.Nil, b.SessionID())
	require.Equal(t, "", b.Output())
	require.Equal(t, "", b.Input())
	require.False(t, b.Exited())

	require.NoError(t, b.Toggle(""))
	require.Equal(t, Running, b.State())
	require.NotEqual(t, first, b.SessionID())
	require.Equal(t, "", b.Input())
}

func TestBridge_SubmitWritesAndEchoes(t *testing.T) {
	requirePTY(t)

	b := New(shellConfig())
	t.Cleanup(b.Close)
	require.NoError(t, b.Toggle(""))

	b.SetInput("echo marker-$((40+2))")
	require.Equal(t, "echo marker-$((40+2))", b.Input())
	require.NoError(t, b.Submit())
	require.Equal(t, "", b.Input())

	require.Eventually(t, func() bool {
		return strings.Contains(b.Output(), "marker-42")
	}, waitFor, 20*time.Millisecond)
	require.Contains(t, b.Output(), "> echo marker-$((40+2))\n")
}

func TestBridge_RunScriptAndGuard(t *testing.T) {
	requirePTY(t)

	dir := t.TempDir()
	script := filepath.Join(dir, "hello.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo hello-from-$(basename \"$PWD\")\nsleep 2\n"), 0o644))

	d := core.NewDispatcher(64)
	b := New(shellConfig(), WithDispatcher(d))
	t.Cleanup(b.Close)

	ok, err := b.Run(script)
	require.NoError(t, err)
	require.True(t, ok)
	id := b.SessionID()

	// A second run while the first is alive is dropped.
	ok, err = b.Run(script)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, id, b.SessionID())

	require.Eventually(t, func() bool {
		return strings.Contains(b.Output(), "hello-from-"+filepath.Base(dir))
	}, waitFor, 20*time.Millisecond)

	sig := <-d.GetUpdateSignalChan()
	out, isOutput := sig.(core.TerminalOutputSignal)
	require.True(t, isOutput)
	require.Equal(t, id, out.Value())
}

func TestBridge_RunUnknownExtension(t *testing.T) {
	b := New(shellConfig(), WithStarter(func(*exec.Cmd, *pty.Winsize) (*os.File, error) {
		t.Fatal("starter must not be called")
		return nil, nil
	}))

	ok, err := b.Run("notes.txt")
	require.False(t, ok)
	require.ErrorIs(t, err, core.ErrNoRunner)
	id, _ := core.ErrorID(err)
	require.Equal(t, core.ErrNoRunnerId, id)
	require.Equal(t, Closed, b.State())
}

func TestBridge_StartFailuresRollBack(t *testing.T) {
	tests := []struct {
		name     string
		start    Starter
		sentinel error
		id       core.ErrorId
	}{
		{
			name: "pty allocation",
			start: func(*exec.Cmd, *pty.Winsize) (*os.File, error) {
				return nil, &fs.PathError{Op: "open", Path: "/dev/ptmx", Err: syscall.ENOENT}
			},
			sentinel: core.ErrPtyAllocation,
			id:       core.ErrPtyAllocationId,
		},
		{
			name: "spawn",
			start: func(cmd *exec.Cmd, _ *pty.Winsize) (*os.File, error) {
				return nil, &fs.PathError{Op: "fork/exec", Path: cmd.Path, Err: syscall.ENOENT}
			},
			sentinel: core.ErrSpawn,
			id:       core.ErrSpawnId,
		},
		{
			name: "missing executable",
			start: func(*exec.Cmd, *pty.Winsize) (*os.File, error) {
				return nil, &exec.Error{Name: "nope", Err: exec.ErrNotFound}
			},
			sentinel: core.ErrSpawn,
			id:       core.ErrSpawnId,
		},
		{
			name: "writer",
			start: func(*exec.Cmd, *pty.Winsize) (*os.File, error) {
				return nil, nil
			},
			sentinel: core.ErrWriter,
			id:       core.ErrWriterId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(shellConfig(), WithStarter(tt.start))

			err := b.Toggle("")
			require.ErrorIs(t, err, tt.sentinel)
			id, ok := core.ErrorID(err)
			require.True(t, ok)
			require.Equal(t, tt.id, id)

			require.Equal(t, Closed, b.State())
			require.Equal(t, uuid.Nil, b.SessionID())
		})
	}
}

func TestBridge_PassesGeometryDirAndEnv(t *testing.T) {
	var got struct {
		size *pty.Winsize
		dir  string
		env  []string
	}
	b := New(Config{Rows: 30, Cols: 100, Shell: "/bin/sh"}, WithStarter(func(cmd *exec.Cmd, size *pty.Winsize) (*os.File, error) {
		got.size = size
		got.dir = cmd.Dir
		got.env = cmd.Env
		return nil, errors.New("stop here")
	}))

	require.Error(t, b.Toggle("/work/project/main.go"))
	require.Equal(t, &pty.Winsize{Rows: 30, Cols: 100}, got.size)
	require.Equal(t, "/work/project", got.dir)
	require.Equal(t, "TERM=dumb", got.env[len(got.env)-1])
}

func TestBridge_OversizedGeometryIsClamped(t *testing.T) {
	var got *pty.Winsize
	b := New(Config{Rows: 70000, Cols: 1 << 20, Shell: "/bin/sh"}, WithStarter(func(cmd *exec.Cmd, size *pty.Winsize) (*os.File, error) {
		got = size
		return nil, errors.New("stop here")
	}))

	require.Error(t, b.Toggle(""))
	require.Equal(t, &pty.Winsize{Rows: 0xFFFF, Cols: 0xFFFF}, got)
}

func TestBridge_SetConfigAppliesToNextSession(t *testing.T) {
	var sizes []pty.Winsize
	starter := pipeStarter("ok")
	b := New(shellConfig(), WithStarter(func(cmd *exec.Cmd, size *pty.Winsize) (*os.File, error) {
		sizes = append(sizes, *size)
		return starter(cmd, size)
	}))
	t.Cleanup(b.Close)

	require.NoError(t, b.Toggle(""))

	cfg := shellConfig()
	cfg.Rows, cfg.Cols = 40, 120
	b.SetConfig(cfg)
	require.Len(t, sizes, 1)

	require.NoError(t, b.Toggle(""))
	require.NoError(t, b.Toggle(""))
	require.Equal(t, []pty.Winsize{{Rows: 24, Cols: 80}, {Rows: 40, Cols: 120}}, sizes)
}

func TestBridge_ReaderDecodesLossily(t *testing.T) {
	d := core.NewDispatcher(64)
	// "é" is split across two writes; "\xff" is invalid.
	b := New(shellConfig(), WithDispatcher(d), WithStarter(pipeStarter("caf\xc3", "\xa9 \xff ok")))
	t.Cleanup(b.Close)

	require.NoError(t, b.Toggle(""))

	require.Eventually(t, b.Exited, waitFor, 10*time.Millisecond)
	require.Equal(t, "café � ok", b.Output())
	require.Equal(t, Running, b.State())

	var exited bool
	for !exited {
		select {
		case sig := <-d.GetUpdateSignalChan():
			_, exited = sig.(core.TerminalExitedSignal)
		case <-time.After(waitFor):
			t.Fatal("no exit signal")
		}
	}
}

func TestBridge_SubmitErrors(t *testing.T) {
	b := New(shellConfig(), WithStarter(pipeStarter()))

	err := b.Submit()
	require.ErrorIs(t, err, core.ErrNoSession)

	require.NoError(t, b.Toggle(""))
	t.Cleanup(b.Close)

	// The read end of a pipe cannot be written to.
	b.SetInput("ls")
	err = b.Submit()
	require.ErrorIs(t, err, core.ErrWriteInput)
	require.Equal(t, "ls", b.Input())
}

func TestBridge_CloseIsIdempotent(t *testing.T) {
	b := New(shellConfig(), WithStarter(pipeStarter("x")))
	require.NoError(t, b.Toggle(""))

	b.Close()
	b.Close()
	require.Equal(t, Closed, b.State())
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		file string
		want []string
	}{
		{"/src/main.go", []string{"go", "run", "main.go"}},
		{"/src/crate/src/main.rs", []string{"cargo", "run"}},
		{"script.PY", []string{"python3", "script.PY"}},
		{"app.js", []string{"node", "app.js"}},
		{"app.ts", []string{"npx", "tsx", "app.ts"}},
		{"task.rb", []string{"ruby", "task.rb"}},
		{"build.sh", []string{"sh", "build.sh"}},
		{"init.lua", []string{"lua", "init.lua"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := RunCommand(tt.file)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := RunCommand("main.c")
	require.ErrorIs(t, err, core.ErrNoRunner)
}

func TestShellCommand(t *testing.T) {
	require.Equal(t, []string{"/bin/zsh"}, ShellCommand("/bin/zsh"))

	t.Setenv("SHELL", "")
	require.Equal(t, []string{"/bin/sh"}, ShellCommand(""))

	t.Setenv("SHELL", "/usr/bin/fish")
	require.Equal(t, []string{"/usr/bin/fish"}, ShellCommand(""))
}

func TestWorkDir(t *testing.T) {
	require.Equal(t, ".", WorkDir(""))
	require.Equal(t, "/a/b", WorkDir("/a/b/c.go"))
}

func TestOutput_ConcurrentAppends(t *testing.T) {
	var o Output
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				o.Append("ab")
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 8*100*2, o.Len())
	require.Equal(t, strings.Repeat("ab", 800), o.String())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "closed", Closed.String())
	require.Equal(t, "initializing", Initializing.String())
	require.Equal(t, "running", Running.String())
}
