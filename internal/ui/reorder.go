package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/reorder"
)

// ReorderModel shows a playlist's media and moves the selected item with J/K.
//
// Every move is applied to the list at once; the controller persists the final
// order after its quiet period. Quitting flushes a pending order first.
type ReorderModel struct {
	ctrl     *reorder.Controller[models.MediaItem]
	list     list.Model
	results  chan reorder.Result[models.MediaItem]
	last     *reorder.Result[models.MediaItem]
	err      error
	saved    int
	quitting bool
	help     help.Model
	keys     keyMap
	width    int
	height   int
}

// NewReorderModel creates a model over the controller's current items.
func NewReorderModel(title string, ctrl *reorder.Controller[models.MediaItem]) *ReorderModel {
	results := make(chan reorder.Result[models.MediaItem], 16)
	ctrl.OnPersist(func(r reorder.Result[models.MediaItem]) {
		select {
		case results <- r:
		default:
		}
	})

	l := list.New(mediaListItems(ctrl.Items()), list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	return &ReorderModel{
		ctrl:    ctrl,
		list:    l,
		results: results,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

func (m *ReorderModel) Init() tea.Cmd {
	return m.waitForResult()
}

func (m *ReorderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.quitting = true
			return m, m.flush(true)
		case key.Matches(msg, m.keys.save):
			return m, m.flush(false)
		case key.Matches(msg, m.keys.moveUp):
			return m, m.move(m.list.Index(), m.list.Index()-1)
		case key.Matches(msg, m.keys.moveDown):
			return m, m.move(m.list.Index(), m.list.Index()+1)
		}

	case Msg:
		switch msg.kind {
		case MsgOrderPersisted:
			r := msg.data.(reorder.Result[models.MediaItem])
			m.last = &r
			if r.Err == nil {
				m.saved++
			}
			return m, m.waitForResult()
		case MsgFlushed:
			f := msg.data.(flushed)
			if f.err != nil {
				m.err = f.err
			}
			if f.quit {
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *ReorderModel) View() string {
	return fmt.Sprintf("%s\n%s\n\n%s", m.list.View(), m.status(), m.help.ShortHelpView(m.helpKeys()))
}

// Items returns the order as currently shown.
func (m *ReorderModel) Items() []models.MediaItem {
	return m.ctrl.Items()
}

// Err returns the last move or write error.
func (m *ReorderModel) Err() error {
	return m.err
}

func (m *ReorderModel) move(from, to int) tea.Cmd {
	if to < 0 || to >= len(m.list.Items()) {
		return nil
	}
	if err := m.ctrl.Move(from, to); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	cmd := m.list.SetItems(mediaListItems(m.ctrl.Items()))
	m.list.Select(to)
	return cmd
}

func (m *ReorderModel) flush(quit bool) tea.Cmd {
	return func() tea.Msg {
		return flushedMsg(m.ctrl.Flush(), quit)
	}
}

func (m *ReorderModel) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return orderPersistedMsg(<-m.results)
	}
}

func (m *ReorderModel) status() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.quitting:
		return styles.warn.Render("Saving order...")
	case m.ctrl.Pending():
		return styles.warn.Render("Unsaved changes")
	case m.last != nil && m.last.Err != nil:
		return styles.err.Render(fmt.Sprintf("Save failed: %v", m.last.Err))
	case m.last != nil:
		return styles.ok.Render(fmt.Sprintf("✓ Saved (%d items)", len(m.last.Items)))
	default:
		return styles.help.Render("No changes")
	}
}

func (m *ReorderModel) helpKeys() []key.Binding {
	return []key.Binding{m.keys.up, m.keys.down, m.keys.moveUp, m.keys.moveDown, m.keys.save, m.keys.quit}
}
