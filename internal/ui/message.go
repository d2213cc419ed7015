package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/reorder"
	"github.com/desertthunder/mediactl/internal/upload"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgOrderPersisted MsgKind = iota
	MsgFlushed
	MsgSessionChanged
)

// orderPersistedMsg is the constructor for [MsgOrderPersisted]
func orderPersistedMsg(result reorder.Result[models.MediaItem]) Msg {
	return Msg{kind: MsgOrderPersisted, data: result}
}

type flushed struct {
	err  error
	quit bool
}

// flushedMsg is the constructor for [MsgFlushed]
func flushedMsg(err error, quit bool) Msg {
	return Msg{kind: MsgFlushed, data: flushed{err: err, quit: quit}}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(s upload.Session) Msg {
	return Msg{kind: MsgSessionChanged, data: s}
}
