package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// KeyMap lists the bindings of the cluster view.
type KeyMap struct {
	Lower      key.Binding
	Higher     key.Binding
	First      key.Binding
	Last       key.Binding
	Jump       key.Binding
	PrevGroup  key.Binding
	NextGroup  key.Binding
	Navigate   key.Binding
	Reload     key.Binding
	Copy       key.Binding
	Export     key.Binding
	Help       key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
	CloseModal key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Lower:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "lower threshold")),
		Higher:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "higher threshold")),
		First:      key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "threshold 0.1")),
		Last:       key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "threshold 0.9")),
		Jump:       key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "jump to 0.1-0.9")),
		PrevGroup:  key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous cluster")),
		NextGroup:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next cluster")),
		Navigate:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "new query")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy query")),
		Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export snapshot")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
		CloseModal: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Lower, k.Higher, k.NextGroup, k.Navigate, k.Export, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Lower, k.Higher, k.First, k.Last, k.Jump},
		{k.PrevGroup, k.NextGroup},
		{k.Navigate, k.Reload, k.Copy, k.Export},
		{k.Help, k.Quit},
	}
}

// digitThreshold maps "1".."9" onto 0.1..0.9.
func digitThreshold(s string) (threshold.Threshold, bool) {
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return threshold.Threshold(s[0] - '0'), true
}
