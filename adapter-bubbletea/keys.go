package adapter_bubbletea

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ionut-t/kokona/core"
)

// KeyMap defines the editor keybindings.
type KeyMap struct {
	Search     key.Binding
	NextMatch  key.Binding
	PrevMatch  key.Binding
	ToggleCase key.Binding
	Terminal   key.Binding
	Run        key.Binding
	Save       key.Binding
	Copy       key.Binding
	Escape     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Search: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "previous match"),
		),
		ToggleCase: key.NewBinding(
			key.WithKeys("alt+c"),
			key.WithHelp("alt+c", "case sensitive"),
		),
		Terminal: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "terminal"),
		),
		Run: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "run file"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Search, k.Terminal, k.Run, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Save, k.Copy, k.Quit},
		{k.Search, k.NextMatch, k.PrevMatch, k.ToggleCase},
		{k.Terminal, k.Run, k.Escape},
	}
}

// convertBubbleKey converts a bubbletea key to a core.KeyEvent.
func convertBubbleKey(msg tea.KeyMsg) core.KeyEvent {
	key := core.KeyEvent{}

	if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
		key.Rune = msg.Runes[0]
	}

	if msg.Alt {
		key.Modifiers |= core.ModAlt
	}

	switch msg.Type {
	case tea.KeyEnter:
		key.Key = core.KeyEnter
	case tea.KeySpace:
		key.Key = core.KeySpace
		key.Rune = ' '
	case tea.KeyEsc:
		key.Key = core.KeyEscape
	case tea.KeyBackspace:
		key.Key = core.KeyBackspace
	case tea.KeyTab:
		key.Key = core.KeyTab
	case tea.KeyUp:
		key.Key = core.KeyUp
	case tea.KeyDown:
		key.Key = core.KeyDown
	case tea.KeyLeft:
		key.Key = core.KeyLeft
	case tea.KeyRight:
		key.Key = core.KeyRight
	case tea.KeyHome:
		key.Key = core.KeyHome
	case tea.KeyEnd:
		key.Key = core.KeyEnd
	case tea.KeyCtrlHome:
		key.Key = core.KeyHome
		key.Modifiers |= core.ModCtrl
	case tea.KeyCtrlEnd:
		key.Key = core.KeyEnd
		key.Modifiers |= core.ModCtrl
	case tea.KeyDelete:
		key.Key = core.KeyDelete
	case tea.KeyPgUp:
		key.Key = core.KeyPageUp
	case tea.KeyPgDown:
		key.Key = core.KeyPageDown
	case tea.KeyRunes:
	default:
		// Remaining control keys carry no rune.
		key.Modifiers |= core.ModCtrl
	}

	return key
}

// insertRunes returns the runes to insert as a block: a bracketed paste, or
// several runes that arrived in one read. Single keys go through core.Edit.
func insertRunes(msg tea.KeyMsg) []rune {
	if msg.Type != tea.KeyRunes || msg.Alt {
		return nil
	}
	if msg.Paste || len(msg.Runes) > 1 {
		return msg.Runes
	}
	return nil
}
