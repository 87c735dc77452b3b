package live

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Next     key.Binding
	Previous key.Binding
	Tab1     key.Binding
	Tab2     key.Binding
	Tab3     key.Binding
	Tab4     key.Binding
	Quit     key.Binding
}

var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("right", "tab"),
		key.WithHelp("→/tab", "next"),
	),
	Previous: key.NewBinding(
		key.WithKeys("left", "shift+tab"),
		key.WithHelp("←", "previous"),
	),
	Tab1: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview")),
	Tab2: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "cpu & ram")),
	Tab3: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "storage & network")),
	Tab4: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "pci & usb")),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.Tab1, k.Tab4, k.Quit}
}
