package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mediactl/internal/upload"
)

// UploadModel follows an [upload.Orchestrator] session.
//
// The orchestrator signals on a one-slot channel; the model reads a fresh
// snapshot on each signal so the last state is never lost.
type UploadModel struct {
	orch     *upload.Orchestrator
	session  upload.Session
	notify   chan struct{}
	progress progress.Model
	err      error
	help     help.Model
	keys     keyMap
}

// NewUploadModel creates a model for orch. Register it before selecting a file
// to see every phase.
func NewUploadModel(orch *upload.Orchestrator) *UploadModel {
	notify := make(chan struct{}, 1)
	orch.OnChange(func(upload.Session) {
		select {
		case notify <- struct{}{}:
		default:
		}
	})

	return &UploadModel{
		orch:     orch,
		session:  orch.Session(),
		notify:   notify,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

func (m *UploadModel) Init() tea.Cmd {
	return m.waitForSession()
}

func (m *UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(60, max(10, msg.Width-20))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.publish):
			m.err = m.orch.Publish()
		case key.Matches(msg, m.keys.retry):
			m.err = m.orch.RetryTransfer()
		}
		return m, nil

	case Msg:
		if msg.kind == MsgSessionChanged {
			m.session = msg.data.(upload.Session)
			return m, m.waitForSession()
		}
	}
	return m, nil
}

func (m *UploadModel) View() string {
	s := m.session
	var b strings.Builder

	name := "no file"
	if s.File != nil {
		name = s.File.Name
	}
	b.WriteString(styles.title.Render("Upload: " + name))
	b.WriteString("\n")
	b.WriteString(styles.field("Phase", s.Phase().String()) + "\n")
	if s.ItemID != "" {
		b.WriteString(styles.field("Item", s.ItemID) + "\n")
	}
	if title := s.Draft.String("title"); title != "" {
		b.WriteString(styles.field("Title", title) + "\n")
	}

	switch {
	case s.Transfer == upload.TransferSucceeded:
		b.WriteString(m.progress.ViewAs(1) + "\n")
	case s.TransferStarted && s.ProgressKnown:
		b.WriteString(m.progress.ViewAs(s.Progress) + "\n")
	case s.TransferStarted:
		b.WriteString(styles.help.Render("Transferring (size unknown)...") + "\n")
	case s.ItemID != "" && s.Endpoint == "" && s.EndpointErr == nil:
		b.WriteString(styles.help.Render(fmt.Sprintf("Waiting for upload endpoint (%d polls)", s.Polls)) + "\n")
	}

	if s.Phase() == upload.PhasePublished {
		b.WriteString(styles.ok.Render("✓ Published") + "\n")
	}
	if err := s.Err(); err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", err)) + "\n")
	}
	for _, line := range fieldErrorLines(s.FieldErrors) {
		b.WriteString(styles.warn.Render(line) + "\n")
	}
	if m.err != nil {
		b.WriteString(styles.warn.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

// Session returns the last snapshot the model rendered.
func (m *UploadModel) Session() upload.Session {
	return m.session
}

func (m *UploadModel) waitForSession() tea.Cmd {
	return func() tea.Msg {
		<-m.notify
		return sessionChangedMsg(m.orch.Session())
	}
}

func (m *UploadModel) helpKeys() []key.Binding {
	keys := []key.Binding{}
	if m.session.CanPublish() {
		keys = append(keys, m.keys.publish)
	}
	if m.session.Transfer == upload.TransferFailed {
		keys = append(keys, m.keys.retry)
	}
	return append(keys, m.keys.quit)
}

func fieldErrorLines(errs map[string][]string) []string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f, strings.Join(errs[f], "; ")))
	}
	return lines
}
