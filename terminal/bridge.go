// Package terminal runs one shell or program at a time behind a pseudo-terminal
// and collects its output for display.
package terminal

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ionut-t/kokona/core"
	"github.com/ionut-t/kokona/internal/log"
)

type State int

const (
	Closed State = iota
	Initializing
	Running
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Config describes the sessions a Bridge starts.
type Config struct {
	Shell     string // empty = $SHELL, then /bin/sh
	Rows      int
	Cols      int
	ChunkSize int      // bytes per PTY read
	Prompt    string   // prefix of echoed input lines
	Env       []string // appended to the parent environment
}

func DefaultConfig() Config {
	return Config{
		Rows:      24,
		Cols:      80,
		ChunkSize: 4096,
		Prompt:    "> ",
		Env:       []string{"TERM=dumb"},
	}
}

// Starter starts cmd attached to a new PTY of the given size and returns the master side.
type Starter func(cmd *exec.Cmd, size *pty.Winsize) (*os.File, error)

type Option func(*Bridge)

// WithStarter replaces pty.StartWithSize.
func WithStarter(start Starter) Option {
	return func(b *Bridge) {
		b.start = start
	}
}

// WithDispatcher sends output and exit signals to d.
func WithDispatcher(d *core.Dispatcher) Option {
	return func(b *Bridge) {
		b.dispatcher = d
	}
}

type session struct {
	id     uuid.UUID
	pty    *os.File
	cmd    *exec.Cmd
	output *Output
	input  string
	prompt string
	chunk  int
	done   chan struct{}
}

// Bridge owns at most one terminal session.
// State moves Closed -> Initializing -> Running -> Closed.
type Bridge struct {
	mu         sync.Mutex
	cfg        Config
	start      Starter
	dispatcher *core.Dispatcher
	state      State
	session    *session
}

func New(cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:   normalizeConfig(cfg),
		start: pty.StartWithSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// normalizeConfig fills unset fields from DefaultConfig and clamps the
// geometry to what a PTY window size can hold.
func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Rows <= 0 {
		cfg.Rows = def.Rows
	}
	if cfg.Cols <= 0 {
		cfg.Cols = def.Cols
	}
	cfg.Rows = min(cfg.Rows, math.MaxUint16)
	cfg.Cols = min(cfg.Cols, math.MaxUint16)
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Env == nil {
		cfg.Env = def.Env
	}
	return cfg
}

// SetConfig replaces the configuration. A running session keeps the settings
// it was started with; the next session uses cfg.
func (b *Bridge) SetConfig(cfg Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = normalizeConfig(cfg)
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Toggle opens an interactive shell in the directory of filename, or closes
// the running session.
func (b *Bridge) Toggle(filename string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Closed {
		b.closeLocked()
		return nil
	}
	return b.openLocked(ShellCommand(b.cfg.Shell), WorkDir(filename))
}

// Run starts the toolchain command for filename. While a session is running
// the request is dropped and Run reports false.
func (b *Bridge) Run(filename string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Closed {
		log.Debug(log.CatTerminal, "run ignored, session already running", "file", filename, "session", b.session.id)
		return false, nil
	}

	argv, err := RunCommand(filename)
	if err != nil {
		return false, core.NewError(core.ErrNoRunnerId, err, nil)
	}

	if err := b.openLocked(argv, WorkDir(filename)); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bridge) openLocked(argv []string, dir string) error {
	b.state = Initializing

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), b.cfg.Env...)

	ptmx, err := b.start(cmd, &pty.Winsize{
		Rows: uint16(b.cfg.Rows),
		Cols: uint16(b.cfg.Cols),
	})
	if err != nil {
		b.state = Closed
		id, sentinel := classifyStartError(err)
		log.ErrorErr(log.CatTerminal, "starting session", err, "argv", strings.Join(argv, " "), "dir", dir)
		return core.NewError(id, sentinel, err)
	}
	if ptmx == nil {
		b.state = Closed
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			go func() { _ = cmd.Wait() }()
		}
		return core.NewError(core.ErrWriterId, core.ErrWriter, nil)
	}

	s := &session{
		id:     uuid.New(),
		pty:    ptmx,
		cmd:    cmd,
		output: &Output{},
		prompt: b.cfg.Prompt,
		chunk:  b.cfg.ChunkSize,
		done:   make(chan struct{}),
	}
	b.session = s
	b.state = Running

	go b.read(s)

	log.Info(log.CatTerminal, "session started", "session", s.id, "argv", strings.Join(argv, " "), "dir", dir)
	return nil
}

// classifyStartError separates process start failures from PTY allocation failures.
func classifyStartError(err error) (core.ErrorId, error) {
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || (errors.As(err, &pathErr) && strings.HasPrefix(pathErr.Op, "fork/exec")) {
		return core.ErrSpawnId, core.ErrSpawn
	}
	return core.ErrPtyAllocationId, core.ErrPtyAllocation
}

// read copies PTY output into the session until EOF or a read error. It is
// the only goroutine reading the PTY and exits on its own once the PTY closes.
func (b *Bridge) read(s *session) {
	defer b.dispatcher.DispatchSignal(core.NewTerminalExitedSignal(s.id))
	defer close(s.done)

	reader := transform.NewReader(s.pty, unicode.UTF8.NewDecoder())
	buf := make([]byte, s.chunk)

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			s.output.Append(string(buf[:n]))
			b.dispatcher.DispatchSignal(core.NewTerminalOutputSignal(s.id))
		}
		if err != nil {
			log.Debug(log.CatTerminal, "reader stopped", "session", s.id, "error", err)
			return
		}
		if n == 0 {
			log.Debug(log.CatTerminal, "reader stopped on empty read", "session", s.id)
			return
		}
	}
}

// Close ends the session: the PTY is closed and the child killed. The reader
// goroutine is not joined; it exits when its next read fails.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
}

func (b *Bridge) closeLocked() {
	s := b.session
	b.session = nil
	b.state = Closed

	if s == nil {
		return
	}

	if err := s.pty.Close(); err != nil {
		log.Debug(log.CatTerminal, "closing pty", "session", s.id, "error", err)
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		go func() { _ = s.cmd.Wait() }()
	}

	log.Info(log.CatTerminal, "session closed", "session", s.id)
}

// SetInput replaces the pending input line.
func (b *Bridge) SetInput(input string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.input = input
	}
}

func (b *Bridge) Input() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ""
	}
	return b.session.input
}

// Submit writes the pending input line to the child, echoes it into the
// output after the prompt marker and clears it.
func (b *Bridge) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.session
	if s == nil {
		return core.NewError(core.ErrNoSessionId, core.ErrNoSession, nil)
	}

	if _, err := s.pty.WriteString(s.input + "\n"); err != nil {
		log.ErrorErr(log.CatTerminal, "writing input", err, "session", s.id)
		return core.NewError(core.ErrWriteInputId, core.ErrWriteInput, err)
	}

	s.output.Append(s.prompt + s.input + "\n")
	s.input = ""
	return nil
}

// Output returns everything the session has produced so far, or "" when closed.
func (b *Bridge) Output() string {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()

	if s == nil {
		return ""
	}
	return s.output.String()
}

// SessionID identifies the current session; uuid.Nil when closed.
func (b *Bridge) SessionID() uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return uuid.Nil
	}
	return b.session.id
}

// Exited reports whether the reader of the current session has stopped,
// which happens when the child exits. A closed bridge reports false.
func (b *Bridge) Exited() bool {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()

	if s == nil {
		return false
	}
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
