package adapter_bubbletea

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ionut-t/kokona/core"
	"github.com/ionut-t/kokona/internal/log"
)

// openSearch shows the search box. The previous query, if any, is searched
// again against the current buffer.
func (m *Model) openSearch() {
	content := m.buffer.GetCurrentContent()
	if !m.search.IsOpen() {
		m.search.Open(content)
		m.search.SetQuery(m.searchInput.Value(), m.caseSensitive, content)
	}

	m.focus = focusSearch
	m.terminalInput.Blur()
	m.saveAsInput.Blur()
	m.searchInput.Focus()
}

func (m *Model) closeSearch() {
	m.search.Close()
	m.focusOnEditor()
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.closeSearch()
		return nil

	case msg.Type == tea.KeyEnter, key.Matches(msg, m.keys.NextMatch):
		m.search.Next()
		m.jumpToMatch()
		return nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.search.Prev()
		m.jumpToMatch()
		return nil

	case key.Matches(msg, m.keys.ToggleCase):
		m.caseSensitive = !m.caseSensitive
		m.search.SetCaseSensitive(m.caseSensitive, m.buffer.GetCurrentContent())
		m.jumpToMatch()
		return nil
	}

	before := m.searchInput.Value()

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	if query := m.searchInput.Value(); query != before {
		m.search.SetQuery(query, m.caseSensitive, m.buffer.GetCurrentContent())
		log.Debug(log.CatSearch, "query changed", "query", query, "matches", len(m.search.Matches()))
		m.jumpToMatch()
	}
	return cmd
}

// jumpToMatch moves the cursor to the start of the current match.
func (m *Model) jumpToMatch() {
	match, ok := m.search.Current()
	if !ok {
		return
	}
	core.MoveCursorTo(m.buffer, match.Start)
	m.scrollToCursor()
}
