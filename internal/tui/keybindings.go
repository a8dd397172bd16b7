package tui

import "github.com/charmbracelet/bubbles/key"

// ListKeyMap defines keybindings for the component list.
type ListKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	DeselectAll key.Binding
	Search      key.Binding
	IssuesOnly  key.Binding
	ShowDetail  key.Binding
	Scan        key.Binding
	Mode        key.Binding
	Order       key.Binding
	PathOrder   key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

// ShortHelp implements help.KeyMap.
func (k ListKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.NextTab, k.Search, k.IssuesOnly, k.Scan, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k ListKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Expand, k.Collapse, k.NextTab, k.PrevTab},
		{k.Toggle, k.SelectAll, k.DeselectAll, k.Order, k.PathOrder},
		{k.Search, k.IssuesOnly, k.ShowDetail, k.Scan, k.Mode},
		{k.Help, k.Quit},
	}
}

// ListKeys are the keybindings for the list screen.
var ListKeys = ListKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Expand: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next game"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev game"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all"),
	),
	DeselectAll: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "deselect all"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	IssuesOnly: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "issues only"),
	),
	ShowDetail: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "details"),
	),
	Scan: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rescan"),
	),
	Mode: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "game mode"),
	),
	Order: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "dependency order"),
	),
	PathOrder: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "path order"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "force quit"),
	),
}

// SearchKeyMap defines keybindings for search mode.
type SearchKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// SearchKeys are the keybindings for search mode.
var SearchKeys = SearchKeyMap{
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
}

// DetailKeyMap defines keybindings for the detail popup.
type DetailKeyMap struct {
	Close key.Binding
}

// DetailKeys are the keybindings for the detail popup.
var DetailKeys = DetailKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "enter", "q"),
		key.WithHelp("esc", "close"),
	),
}
