package adapter_bubbletea

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/ionut-t/kokona/core"
	"github.com/ionut-t/kokona/highlighter"
	"github.com/ionut-t/kokona/internal/config"
	"github.com/ionut-t/kokona/internal/log"
	"github.com/ionut-t/kokona/terminal"
)

const (
	highlightTickInterval = 100 * time.Millisecond
	messageDuration       = 3 * time.Second
	signalBufferSize      = 64
)

type Theme struct {
	StatusLineStyle        lipgloss.Style
	ModifiedStyle          lipgloss.Style
	CommandLineStyle       lipgloss.Style
	MessageStyle           lipgloss.Style
	ErrorStyle             lipgloss.Style
	LineNumberStyle        lipgloss.Style
	CurrentLineNumberStyle lipgloss.Style
	SearchSummaryStyle     lipgloss.Style
	TerminalTitleStyle     lipgloss.Style
	TerminalBorderStyle    lipgloss.Style
}

var DefaultTheme = Theme{
	StatusLineStyle:        lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("255")),
	ModifiedStyle:          lipgloss.NewStyle().Background(lipgloss.Color("208")).Foreground(lipgloss.Color("0")),
	CommandLineStyle:       lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("255")),
	MessageStyle:           lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	ErrorStyle:             lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	LineNumberStyle:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	CurrentLineNumberStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	SearchSummaryStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	TerminalTitleStyle:     lipgloss.NewStyle().Background(lipgloss.Color("26")).Foreground(lipgloss.Color("255")),
	TerminalBorderStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

type focus int

const (
	focusEditor focus = iota
	focusSearch
	focusTerminal
	focusSaveAs
)

// MessageMsg shows an informational message in the command line.
type MessageMsg string

// ErrorMsg shows an error in the command line.
type ErrorMsg struct {
	Err error
}

// ConfigChangedMsg carries a reloaded configuration.
type ConfigChangedMsg struct {
	Config config.Config
	Err    error
}

type clearMsg struct{}

type tickMsg time.Time

type signalMsg struct {
	signal core.Signal
}

type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		m.copyToClipboard = write
	}
}

// WithTerminalOptions passes options to the terminal bridge.
func WithTerminalOptions(opts ...terminal.Option) Option {
	return func(m *Model) {
		m.terminalOpts = append(m.terminalOpts, opts...)
	}
}

// WithHighlighterOptions passes options to the highlight engine.
func WithHighlighterOptions(opts ...highlighter.Option) Option {
	return func(m *Model) {
		m.highlighterOpts = append(m.highlighterOpts, opts...)
	}
}

type Model struct {
	buffer      core.Buffer
	filename    string
	highlighter *highlighter.Engine
	search      *core.Search
	lineIndex   *core.LineIndex
	terminal    *terminal.Bridge
	dispatcher  *core.Dispatcher

	searchInput   textinput.Model
	saveAsInput   textinput.Model
	terminalInput textinput.Model
	terminalView  viewport.Model
	help          help.Model
	keys          KeyMap

	theme           Theme
	matchColors     core.MatchColors
	caseSensitive   bool
	showLineNumbers bool

	width   int
	height  int
	topLine int
	focus   focus

	message     string
	err         error
	quitPending bool

	copyToClipboard func(string) error
	terminalOpts    []terminal.Option
	highlighterOpts []highlighter.Option
}

func New(cfg config.Config, width, height int, opts ...Option) Model {
	m := Model{
		buffer:          core.NewBuffer(),
		search:          core.NewSearch(),
		lineIndex:       core.NewLineIndex(),
		dispatcher:      core.NewDispatcher(signalBufferSize),
		help:            help.New(),
		keys:            DefaultKeyMap(),
		theme:           DefaultTheme,
		matchColors:     core.DefaultMatchColors,
		showLineNumbers: true,
		copyToClipboard: clipboard.WriteAll,
	}

	for _, opt := range opts {
		opt(&m)
	}

	hlOpts := []highlighter.Option{
		highlighter.WithTheme(cfg.Editor.Theme),
		highlighter.WithFont(fontOf(cfg)),
		highlighter.WithLargeFileLines(cfg.Highlight.LargeFileLines),
		highlighter.WithDebounce(cfg.Highlight.Debounce),
	}
	m.highlighter = highlighter.New(append(hlOpts, m.highlighterOpts...)...)

	termOpts := []terminal.Option{terminal.WithDispatcher(m.dispatcher)}
	m.terminal = terminal.New(terminalConfig(cfg), append(termOpts, m.terminalOpts...)...)

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "search: "

	m.saveAsInput = textinput.New()
	m.saveAsInput.Prompt = "save as: "

	m.terminalInput = textinput.New()

	m.terminalView = viewport.New(width, 0)

	if err := m.applyConfig(cfg); err != nil {
		m.err = err
	}

	m.SetSize(width, height)

	return m
}

func terminalConfig(cfg config.Config) terminal.Config {
	return terminal.Config{
		Shell:     cfg.Terminal.Shell,
		Rows:      cfg.Terminal.Rows,
		Cols:      cfg.Terminal.Cols,
		ChunkSize: cfg.Terminal.ReadChunkSize,
		Prompt:    cfg.Terminal.Prompt,
	}
}

func fontOf(cfg config.Config) highlighter.Font {
	return highlighter.Font{Family: cfg.Editor.FontFamily, Size: cfg.Editor.FontSize}
}

// applyConfig pushes settings into the components. Invalid colours keep
// the previous value and are reported. Terminal settings reach the next
// session only.
func (m *Model) applyConfig(cfg config.Config) error {
	m.highlighter.SetTheme(cfg.Editor.Theme)
	m.highlighter.SetFont(fontOf(cfg))
	m.highlighter.SetLargeFileLines(cfg.Highlight.LargeFileLines)
	m.highlighter.SetDebounce(cfg.Highlight.Debounce)
	m.terminal.SetConfig(terminalConfig(cfg))
	m.terminalInput.Prompt = cfg.Terminal.Prompt
	m.showLineNumbers = cfg.Editor.ShowLineNumbers
	m.caseSensitive = cfg.Search.CaseSensitive

	var errs []string
	if c, err := highlighter.ParseColor(cfg.Search.CurrentMatchColor); err == nil {
		m.matchColors.Current = c
	} else {
		errs = append(errs, err.Error())
	}
	if c, err := highlighter.ParseColor(cfg.Search.MatchColor); err == nil {
		m.matchColors.Other = c
	} else {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return core.NewError(core.ErrConfigId, fmt.Errorf("search colours: %s", strings.Join(errs, ", ")), nil)
	}
	return nil
}

// Open loads content for filename. The grammar is chosen from the file name.
func (m *Model) Open(filename string, content []byte) {
	m.filename = filename
	m.buffer.SetContent(content)
	m.buffer.SetCursor(core.Cursor{})
	m.topLine = 0
	m.lineIndex.Invalidate()

	m.highlighter.SetGrammar(filename)
	m.highlighter.Recompute(m.buffer.GetCurrentContent())

	if m.search.IsOpen() {
		m.search.FindMatches(m.buffer.GetCurrentContent())
	}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	m.terminalView.Width = width
	m.terminalView.Height = max(m.terminalHeight()-2, 0)
	m.terminalInput.Width = max(width-lipgloss.Width(m.terminalInput.Prompt)-1, 1)
	m.searchInput.Width = max(width/3, 1)
	m.saveAsInput.Width = max(width-lipgloss.Width(m.saveAsInput.Prompt)-1, 1)
	m.help.Width = width

	m.scrollToCursor()
}

func (m *Model) WithTheme(theme Theme) {
	m.theme = theme
}

func (m *Model) Filename() string {
	return m.filename
}

func (m *Model) GetCurrentContent() string {
	return m.buffer.GetCurrentContent()
}

func (m *Model) HasChanges() bool {
	return m.buffer.IsModified()
}

// SetError shows err in the command line until the message timeout.
func (m *Model) SetError(err error) {
	m.message = ""
	m.err = err
}

// Close ends the terminal session, if any.
func (m *Model) Close() {
	m.terminal.Close()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick(), m.listenForSignals(), textinput.Blink}
	if m.err != nil || m.message != "" {
		cmds = append(cmds, m.dispatchClearMsg())
	}
	return tea.Batch(cmds...)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(highlightTickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) dispatchClearMsg() tea.Cmd {
	return tea.Tick(messageDuration, func(t time.Time) tea.Msg {
		return clearMsg{}
	})
}

func (m *Model) listenForSignals() tea.Cmd {
	ch := m.dispatcher.GetUpdateSignalChan()
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		signal, ok := <-ch
		if !ok {
			return nil
		}
		return signalMsg{signal}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tickMsg:
		m.highlighter.Tick()
		cmds = append(cmds, m.tick())

	case signalMsg:
		cmds = append(cmds, m.handleSignal(msg.signal), m.listenForSignals())

	case MessageMsg:
		m.message = string(msg)
		m.err = nil
		cmds = append(cmds, m.dispatchClearMsg())

	case ErrorMsg:
		m.message = ""
		m.err = msg.Err
		cmds = append(cmds, m.dispatchClearMsg())

	case ConfigChangedMsg:
		if msg.Err != nil {
			log.ErrorErr(log.CatConfig, "config reload", msg.Err)
			m.err = core.NewError(core.ErrConfigId, msg.Err, nil)
			cmds = append(cmds, m.dispatchClearMsg())
			break
		}
		if err := m.applyConfig(msg.Config); err != nil {
			m.err = err
		} else {
			m.message = "configuration reloaded"
		}
		cmds = append(cmds, m.dispatchClearMsg())

	case clearMsg:
		m.message = ""
		m.err = nil

	default:
		cmds = append(cmds, m.updateInputs(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case focusSaveAs:
		m.saveAsInput, cmd = m.saveAsInput.Update(msg)
	case focusTerminal:
		m.terminalInput, cmd = m.terminalInput.Update(msg)
	}
	return cmd
}

func (m *Model) handleSignal(signal core.Signal) tea.Cmd {
	switch signal := signal.(type) {
	case core.TerminalOutputSignal:
		if signal.Value() == m.terminal.SessionID() {
			m.refreshTerminalView()
		}
	case core.TerminalExitedSignal:
		if signal.Value() == m.terminal.SessionID() {
			m.refreshTerminalView()
			log.Debug(log.CatUI, "terminal session exited", "session", signal.Value())
		}
	case core.ErrorSignal:
		_, err := signal.Value()
		return func() tea.Msg { return ErrorMsg{err} }
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if !key.Matches(msg, m.keys.Quit) {
		m.quitPending = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.buffer.IsModified() && !m.quitPending {
			m.quitPending = true
			return m.showMessage("unsaved changes, press ctrl+q again to quit")
		}
		m.terminal.Close()
		return tea.Quit

	case key.Matches(msg, m.keys.Save) && m.focus != focusSaveAs:
		return m.save()

	case key.Matches(msg, m.keys.Run):
		return m.run()

	case key.Matches(msg, m.keys.Terminal):
		return m.toggleTerminal()

	case key.Matches(msg, m.keys.Copy):
		return m.copySelection()

	case key.Matches(msg, m.keys.Search):
		m.openSearch()
		return textinput.Blink
	}

	switch m.focus {
	case focusSearch:
		return m.handleSearchKey(msg)
	case focusTerminal:
		return m.handleTerminalKey(msg)
	case focusSaveAs:
		return m.handleSaveAsKey(msg)
	}
	return m.handleEditorKey(msg)
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	if m.search.IsOpen() {
		switch {
		case key.Matches(msg, m.keys.NextMatch):
			m.search.Next()
			m.jumpToMatch()
			return nil
		case key.Matches(msg, m.keys.PrevMatch):
			m.search.Prev()
			m.jumpToMatch()
			return nil
		case key.Matches(msg, m.keys.Escape):
			m.closeSearch()
			return nil
		}
	}

	if runes := insertRunes(msg); runes != nil {
		pos := m.buffer.GetCursor().Position
		offset := m.buffer.Offset(pos)
		if err := m.buffer.InsertRunesAt(pos.Row, pos.Col, runes); err != nil {
			return m.showError(core.NewError(core.ErrInvalidPositionId, core.ErrInvalidPosition, err))
		}
		core.MoveCursorTo(m.buffer, offset+len(string(runes)))
		m.contentChanged()
		m.scrollToCursor()
		return nil
	}

	changed, err := core.Edit(m.buffer, convertBubbleKey(msg), m.editorHeight())
	if err != nil {
		return m.showError(err)
	}
	if changed {
		m.contentChanged()
	}
	m.scrollToCursor()
	return nil
}

// contentChanged keeps the open search in step with the buffer.
func (m *Model) contentChanged() {
	if m.search.IsOpen() {
		m.search.FindMatches(m.buffer.GetCurrentContent())
	}
}

func (m *Model) save() tea.Cmd {
	if m.filename == "" {
		m.focus = focusSaveAs
		m.searchInput.Blur()
		m.terminalInput.Blur()
		m.saveAsInput.SetValue("")
		return m.saveAsInput.Focus()
	}
	return m.writeFile(m.filename)
}

func (m *Model) writeFile(filename string) tea.Cmd {
	content := m.buffer.GetCurrentContent()
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		log.ErrorErr(log.CatUI, "saving file", err, "file", filename)
		return m.showError(core.NewError(core.ErrFileWriteId, core.ErrFileWrite, err))
	}

	if filename != m.filename {
		m.filename = filename
		m.highlighter.SetGrammar(filename)
	}
	m.buffer.SaveContent()
	m.highlighter.Recompute(content)

	log.Info(log.CatUI, "file saved", "file", filename, "bytes", len(content))
	return m.showMessage(fmt.Sprintf("%q written, %d bytes", filepath.Base(filename), len(content)))
}

func (m *Model) handleSaveAsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.saveAsInput.Blur()
		m.focus = focusEditor
		return nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.saveAsInput.Value())
		if name == "" {
			return nil
		}
		if strings.HasPrefix(name, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return m.showError(core.NewError(core.ErrFileWriteId, core.ErrFileWrite, err))
			}
			name = filepath.Join(home, name[2:])
		}
		m.saveAsInput.Blur()
		m.focus = focusEditor
		return m.writeFile(name)
	}

	var cmd tea.Cmd
	m.saveAsInput, cmd = m.saveAsInput.Update(msg)
	return cmd
}

func (m *Model) copySelection() tea.Cmd {
	content := m.buffer.GetCurrentContent()
	text := content

	switch {
	case m.focus == focusTerminal:
		text = m.terminal.Output()
	case m.search.IsOpen():
		if match, ok := m.search.Current(); ok {
			text = content[match.Start:match.End]
		}
	}

	if err := m.copyToClipboard(text); err != nil {
		return m.showError(core.NewError(core.ErrCopyFailedId, core.ErrCopyFailed, err))
	}
	return m.showMessage(fmt.Sprintf("%d characters copied", utf8.RuneCountInString(text)))
}

func (m *Model) showMessage(message string) tea.Cmd {
	m.message = message
	m.err = nil
	return m.dispatchClearMsg()
}

func (m *Model) showError(err error) tea.Cmd {
	m.message = ""
	m.err = err
	return m.dispatchClearMsg()
}

func (m Model) View() string {
	sections := []string{m.renderEditor()}

	if m.terminalOpen() {
		sections = append(sections, m.renderTerminal())
	}

	sections = append(sections, m.getStatusLine(), m.getCommandLine())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) getStatusLine() string {
	name := m.filename
	if name == "" {
		name = "[untitled]"
	}

	name = truncate.StringWithTail(filepath.Base(name), uint(max(m.width/3, 1)), "…")
	left := m.theme.StatusLineStyle.Render(" " + name + " ")
	if m.buffer.IsModified() {
		left += m.theme.ModifiedStyle.Render(" + ")
	}

	grammar := m.highlighter.Grammar()
	if grammar == "" {
		grammar = "plain text"
	}

	cursor := m.buffer.GetCursor()
	right := fmt.Sprintf("%s | Line %d, Column %d | Characters: %d ",
		grammar,
		cursor.Position.Row+1,
		cursor.Position.Col+1,
		utf8.RuneCountInString(m.buffer.GetCurrentContent()),
	)

	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(left + m.theme.StatusLineStyle.Render(gap+right))
}

func (m *Model) getCommandLine() string {
	var line string

	switch {
	case m.err != nil:
		line = m.theme.ErrorStyle.Render(m.err.Error())
	case m.message != "":
		line = m.theme.MessageStyle.Render(m.message)
	case m.focus == focusSaveAs:
		line = m.saveAsInput.View()
	case m.search.IsOpen():
		line = m.searchInput.View() + "  " + m.theme.SearchSummaryStyle.Render(m.searchSummary())
	default:
		line = m.help.View(m.keys)
	}

	line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	if pad := m.width - lipgloss.Width(line); pad > 0 {
		line += m.theme.CommandLineStyle.Render(strings.Repeat(" ", pad))
	}
	return line
}

func (m *Model) searchSummary() string {
	summary := m.search.Summary()
	if m.search.CaseSensitive() {
		summary += " [Aa]"
	}
	return summary
}
