package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"rollcall/internal/domain"
)

// KeyMap defines the key bindings of the attendance screen.
type KeyMap struct {
	// Navigation
	Prev key.Binding
	Next key.Binding

	// Search
	Search  key.Binding
	Confirm key.Binding
	Cancel  key.Binding

	// Marking; Mark[i] selects variant.Choices()[i].
	Mark  []key.Binding
	Clear key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the bindings for a session of the given variant.
func DefaultKeyMap(variant domain.Variant) KeyMap {
	k := KeyMap{
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←/h", "anterior"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/l", "siguiente"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "buscar"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ir"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancelar"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x", "backspace"),
			key.WithHelp("x", "limpiar"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "salir"),
		),
	}
	for i, s := range variant.Choices() {
		n := fmt.Sprint(i + 1)
		k.Mark = append(k.Mark, key.NewBinding(
			key.WithKeys(n),
			key.WithHelp(n, s.Label()),
		))
	}
	return k
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	out := []key.Binding{k.Prev, k.Next}
	out = append(out, k.Mark...)
	return append(out, k.Clear, k.Search, k.Quit)
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next},
		append(append([]key.Binding(nil), k.Mark...), k.Clear),
		{k.Search, k.Confirm, k.Cancel, k.Quit},
	}
}
