// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit stops tracking and exits. The sync keeps running on the service.
	Quit key.Binding

	// Restart starts a new sync once the previous one finished.
	Restart key.Binding

	// Help toggles the detailed help line.
	Help key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "sync again"),
			key.WithDisabled(),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// SetFinished enables the bindings that only apply to a finished sync.
func (k *KeyMap) SetFinished(finished bool) {
	k.Restart.SetEnabled(finished)
}

// ShortHelp returns the bindings shown in the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return enabled(k.Restart, k.Quit, k.Help)
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		enabled(k.Restart),
		{k.Help, k.Quit},
	}
}

// Matches checks if a key string matches an enabled binding.
func Matches(keyStr string, binding key.Binding) bool {
	if !binding.Enabled() {
		return false
	}
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}

func enabled(bindings ...key.Binding) []key.Binding {
	out := make([]key.Binding, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled() {
			out = append(out, b)
		}
	}
	return out
}
