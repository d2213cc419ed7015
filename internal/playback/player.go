package playback

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/desertthunder/mediactl/internal/shared"
)

// EventKind identifies a player event.
type EventKind int

const (
	// PlaylistEvent fires when a new playlist is loaded.
	PlaylistEvent EventKind = iota
	// PlaylistItemEvent fires when the current item changes.
	PlaylistItemEvent
)

func (k EventKind) String() string {
	switch k {
	case PlaylistEvent:
		return "playlist"
	case PlaylistItemEvent:
		return "playlistItem"
	default:
		return "unknown"
	}
}

// Event carries the player's current playlist and index.
type Event struct {
	Kind     EventKind
	Playlist []Entry
	Index    int
}

// Engine is the contract consumed from a playback engine.
type Engine interface {
	Setup(opts SetupOptions) error
	Subscribe(fn func(Event))
	SelectItem(index int) error
}

// Tracker follows an engine's events and remembers where playback is.
type Tracker struct {
	mu       sync.Mutex
	playlist []Entry
	index    int
}

// Track subscribes a new tracker to engine.
func Track(engine Engine) *Tracker {
	t := &Tracker{index: -1}
	engine.Subscribe(t.Handle)
	return t
}

// Handle applies an event.
func (t *Tracker) Handle(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case PlaylistEvent:
		t.playlist = e.Playlist
		t.index = e.Index
	case PlaylistItemEvent:
		if e.Playlist != nil {
			t.playlist = e.Playlist
		}
		t.index = e.Index
	}
}

// Current returns the playlist and the index of the current item, -1 before any event.
func (t *Tracker) Current() ([]Entry, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playlist, t.index
}

// Item returns the current entry.
func (t *Tracker) Item() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index < 0 || t.index >= len(t.playlist) {
		return nil, false
	}
	return t.playlist[t.index], true
}

// M3UEngine is an [Engine] that writes the playlist as extended M3U.
type M3UEngine struct {
	mu          sync.Mutex
	w           io.Writer
	playlist    []Entry
	index       int
	subscribers []func(Event)
}

// NewM3UEngine returns an engine that writes to w and has nothing selected.
func NewM3UEngine(w io.Writer) *M3UEngine {
	return &M3UEngine{w: w, index: -1}
}

// Setup writes the playlist and selects its first entry.
func (m *M3UEngine) Setup(opts SetupOptions) error {
	m.mu.Lock()
	m.playlist = opts.Playlist
	m.index = 0
	if len(opts.Playlist) == 0 {
		m.index = -1
	}
	err := writeM3U(m.w, opts.Playlist)
	event := Event{Kind: PlaylistEvent, Playlist: m.playlist, Index: m.index}
	subscribers := m.subscribers
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range subscribers {
		fn(event)
	}
	return nil
}

func (m *M3UEngine) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *M3UEngine) SelectItem(index int) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.playlist) {
		m.mu.Unlock()
		return fmt.Errorf("%w: item %d of %d", shared.ErrIndexOutOfRange, index, len(m.playlist))
	}
	m.index = index
	event := Event{Kind: PlaylistItemEvent, Playlist: m.playlist, Index: index}
	subscribers := m.subscribers
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
	return nil
}

func writeM3U(w io.Writer, playlist []Entry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "#EXTM3U")
	for _, e := range playlist {
		title := strings.ReplaceAll(e.Title(), "\n", " ")
		fmt.Fprintf(bw, "#EXTINF:%d,%s\n", duration(e), title)
		fmt.Fprintln(bw, e.File())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	return nil
}

// duration reads a numeric duration in seconds, -1 when absent.
func duration(e Entry) int {
	switch v := e["duration"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return -1
	}
}
