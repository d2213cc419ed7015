package ui

import "github.com/charmbracelet/lipgloss"

// Theme names the colors the views draw with. Each is a lipgloss color string.
type Theme struct {
	Accent, Success, Failure, Pending, Muted string
}

var defaultTheme = Theme{
	Accent:  "#7D56F4",
	Success: "#04B575",
	Failure: "#FF0000",
	Pending: "#FFA500",
	Muted:   "#626262",
}

var styles = newPalette(defaultTheme)

// palette holds the rendered styles derived from a [Theme].
type palette struct {
	title, ok, err, warn, help, label lipgloss.Style
}

func newPalette(t Theme) palette {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return palette{
		title: fg(t.Accent).Bold(true).MarginBottom(1),
		ok:    fg(t.Success).Bold(true),
		err:   fg(t.Failure).Bold(true),
		warn:  fg(t.Pending),
		help:  fg(t.Muted).Italic(true),
		label: fg(t.Muted).Width(12),
	}
}

// field renders a "label value" row.
func (p palette) field(label, value string) string {
	return p.label.Render(label) + value
}
