package adapter_bubbletea

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/ionut-t/kokona/internal/log"
	"github.com/ionut-t/kokona/terminal"
)

func (m *Model) terminalOpen() bool {
	return m.terminal.State() != terminal.Closed
}

// terminalHeight is the number of rows the panel takes, title and input included.
func (m *Model) terminalHeight() int {
	if !m.terminalOpen() {
		return 0
	}
	return max((m.height-2)/2, 3)
}

// editorHeight is the number of text rows left for the buffer.
func (m *Model) editorHeight() int {
	return max(m.height-2-m.terminalHeight(), 1)
}

func (m *Model) resizeTerminal() {
	m.terminalView.Width = m.width
	m.terminalView.Height = max(m.terminalHeight()-2, 0)
	m.refreshTerminalView()
}

// refreshTerminalView copies the session output into the viewport and follows
// the tail unless the user scrolled up.
func (m *Model) refreshTerminalView() {
	follow := m.terminalView.AtBottom()

	output := strings.ReplaceAll(ansi.Strip(m.terminal.Output()), "\r", "")
	if m.terminalView.Width > 0 {
		output = ansi.Hardwrap(output, m.terminalView.Width, true)
	}
	m.terminalView.SetContent(output)

	if follow {
		m.terminalView.GotoBottom()
	}
}

func (m *Model) toggleTerminal() tea.Cmd {
	if err := m.terminal.Toggle(m.filename); err != nil {
		log.ErrorErr(log.CatUI, "toggling terminal", err)
		m.resizeTerminal()
		return m.showError(err)
	}

	m.resizeTerminal()
	m.scrollToCursor()

	if m.terminalOpen() {
		return m.focusOnTerminal()
	}
	m.focusOnEditor()
	return nil
}

// run saves pending changes and starts the file's run command. A running
// session makes this a no-op.
func (m *Model) run() tea.Cmd {
	var cmds []tea.Cmd
	if m.buffer.IsModified() && m.filename != "" {
		cmds = append(cmds, m.writeFile(m.filename))
	}

	started, err := m.terminal.Run(m.filename)
	if err != nil {
		log.ErrorErr(log.CatUI, "running file", err, "file", m.filename)
		cmds = append(cmds, m.showError(err))
		return tea.Batch(cmds...)
	}
	if started {
		m.resizeTerminal()
		m.scrollToCursor()
		cmds = append(cmds, m.focusOnTerminal())
	}
	return tea.Batch(cmds...)
}

func (m *Model) focusOnTerminal() tea.Cmd {
	m.focus = focusTerminal
	m.searchInput.Blur()
	return m.terminalInput.Focus()
}

func (m *Model) focusOnEditor() {
	m.focus = focusEditor
	m.searchInput.Blur()
	m.terminalInput.Blur()
	m.saveAsInput.Blur()
}

func (m *Model) handleTerminalKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.focusOnEditor()
		return nil

	case tea.KeyEnter:
		m.terminal.SetInput(m.terminalInput.Value())
		if err := m.terminal.Submit(); err != nil {
			return m.showError(err)
		}
		m.terminalInput.Reset()
		m.refreshTerminalView()
		return nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.terminalView, cmd = m.terminalView.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	m.terminalInput, cmd = m.terminalInput.Update(msg)
	m.terminal.SetInput(m.terminalInput.Value())
	return tea.Batch(cmd, textinput.Blink)
}

func (m *Model) renderTerminal() string {
	title := " terminal "
	if m.terminal.Exited() {
		title = " terminal (exited) "
	}
	title = m.theme.TerminalTitleStyle.Render(title)
	if pad := m.width - ansi.StringWidth(title); pad > 0 {
		title += m.theme.TerminalBorderStyle.Render(strings.Repeat("─", pad))
	}

	return strings.Join([]string{
		title,
		m.terminalView.View(),
		m.terminalInput.View(),
	}, "\n")
}
