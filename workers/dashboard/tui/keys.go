package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTab   key.Binding
	PrevTab   key.Binding
	NextFile  key.Binding
	PrevFile  key.Binding
	Refresh   key.Binding
	TimeRange key.Binding
	Chart     key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		NextFile:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next file")),
		PrevFile:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev file")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		TimeRange: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "time range")),
		Chart:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "next chart")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.PrevTab, k.PrevFile, k.NextFile, k.Refresh, k.TimeRange, k.Chart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
