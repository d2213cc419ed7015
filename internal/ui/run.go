package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts a full-screen program for m and blocks until it exits or ctx is done.
func Run(ctx context.Context, m tea.Model) error {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
