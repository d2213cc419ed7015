package upload

import (
	"fmt"
	"time"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// Event is an input to [Transition].
type Event interface {
	session() string
}

// FileSelected starts a session for File, or joins an attached session that has no file yet.
type FileSelected struct {
	SessionID string
	File      *File
	Now       time.Time
}

// ItemAttached starts a session for an existing item, before any file is chosen.
type ItemAttached struct {
	SessionID string
	Item      models.Fields
}

type ItemCreated struct {
	SessionID string
	Item      models.Fields
}

type ItemCreateFailed struct {
	SessionID string
	Err       error
}

type EndpointResolved struct {
	SessionID string
	URL       string
}

// EndpointPending reports that the endpoint exists but has no URL yet.
type EndpointPending struct {
	SessionID string
}

type EndpointFailed struct {
	SessionID string
	Err       error
}

// TransferProgressed reports bytes sent. Total is negative when unknown.
type TransferProgressed struct {
	SessionID string
	Sent      int64
	Total     int64
}

type TransferFinished struct {
	SessionID string
	Err       error
}

// TransferRetried re-arms a failed transfer.
type TransferRetried struct {
	SessionID string
}

type DraftEdited struct {
	SessionID string
	Fields    models.Fields
}

type PublishRequested struct {
	SessionID string
}

type PublishFinished struct {
	SessionID   string
	Item        models.Fields
	Err         error
	FieldErrors map[string][]string
}

func (e FileSelected) session() string       { return e.SessionID }
func (e ItemAttached) session() string       { return e.SessionID }
func (e ItemCreated) session() string        { return e.SessionID }
func (e ItemCreateFailed) session() string   { return e.SessionID }
func (e EndpointResolved) session() string   { return e.SessionID }
func (e EndpointPending) session() string    { return e.SessionID }
func (e EndpointFailed) session() string     { return e.SessionID }
func (e TransferProgressed) session() string { return e.SessionID }
func (e TransferFinished) session() string   { return e.SessionID }
func (e TransferRetried) session() string    { return e.SessionID }
func (e DraftEdited) session() string        { return e.SessionID }
func (e PublishRequested) session() string   { return e.SessionID }
func (e PublishFinished) session() string    { return e.SessionID }

// Effect is work [Transition] asks the caller to perform.
type Effect interface {
	effect()
}

// CreateItem asks for a new media item titled Title.
type CreateItem struct {
	SessionID string
	Title     string
	Draft     models.Fields
}

// ResolveEndpoint asks for the item's transfer URL after Delay.
type ResolveEndpoint struct {
	SessionID string
	ItemID    string
	Attempt   int
	Delay     time.Duration
}

type StartTransfer struct {
	SessionID string
	ItemID    string
	URL       string
	File      *File
}

// PatchItem publishes Fields to the item.
type PatchItem struct {
	SessionID string
	ItemID    string
	Fields    models.Fields
}

func (CreateItem) effect()      {}
func (ResolveEndpoint) effect() {}
func (StartTransfer) effect()   {}
func (PatchItem) effect()       {}

// Transition applies ev to s. Events from another session leave s unchanged.
func Transition(s Session, ev Event, p Policy) (Session, []Effect) {
	var effects []Effect

	switch e := ev.(type) {
	case FileSelected:
		if e.File == nil {
			return s, nil
		}
		draft := p.DraftFor(e.File, e.Now)

		if s.ID != "" && s.ItemID != "" && s.File == nil && s.CreateErr == nil {
			s.File = e.File
			s.Draft = models.Merge(draft, s.Draft)
			break
		}

		s = Session{ID: e.SessionID, File: e.File, Draft: draft}
		effects = append(effects, CreateItem{SessionID: s.ID, Title: draft.String("title"), Draft: draft})

	case ItemAttached:
		id := e.Item.String("id")
		if id == "" {
			return s, nil
		}
		s = Session{ID: e.SessionID, ItemID: id, Item: e.Item, Draft: draftFromItem(e.Item)}
		effects = append(effects, ResolveEndpoint{SessionID: s.ID, ItemID: id, Attempt: 1})

	default:
		if ev.session() != s.ID || s.ID == "" {
			return s, nil
		}
		s, effects = apply(s, ev, p)
	}

	return join(s, effects)
}

func apply(s Session, ev Event, p Policy) (Session, []Effect) {
	switch e := ev.(type) {
	case ItemCreated:
		if s.ItemID != "" {
			return s, nil
		}
		id := e.Item.String("id")
		if id == "" {
			s.CreateErr = fmt.Errorf("%w: created item has no id", shared.ErrEmptyResponse)
			return s, nil
		}
		s.ItemID = id
		s.Item = e.Item
		s.Draft = models.Merge(draftFromItem(e.Item), s.Draft)
		return s, []Effect{ResolveEndpoint{SessionID: s.ID, ItemID: s.ItemID, Attempt: 1}}

	case ItemCreateFailed:
		s.CreateErr = e.Err

	case EndpointResolved:
		if s.Endpoint == "" && s.EndpointErr == nil {
			s.Endpoint = e.URL
		}

	case EndpointPending:
		if s.Endpoint != "" || s.EndpointErr != nil {
			return s, nil
		}
		s.Polls++
		if p.MaxPolls > 0 && s.Polls >= p.MaxPolls {
			s.EndpointErr = fmt.Errorf("%w: no url after %d polls", shared.ErrEndpointNotReady, s.Polls)
			return s, nil
		}
		return s, []Effect{ResolveEndpoint{SessionID: s.ID, ItemID: s.ItemID, Attempt: s.Polls + 1, Delay: p.Delay(s.Polls)}}

	case EndpointFailed:
		s.EndpointErr = e.Err

	case TransferProgressed:
		if !s.TransferStarted || s.Transfer != TransferPending {
			return s, nil
		}
		if e.Total > 0 {
			s.Progress = min(max(float64(e.Sent)/float64(e.Total), 0), 1)
			s.ProgressKnown = true
		} else {
			s.ProgressKnown = false
		}

	case TransferFinished:
		if !s.TransferStarted || s.Transfer != TransferPending {
			return s, nil
		}
		if e.Err != nil {
			s.Transfer = TransferFailed
			s.TransferErr = e.Err
			return s, nil
		}
		s.Transfer = TransferSucceeded
		s.Progress = 1
		s.ProgressKnown = true

	case TransferRetried:
		if s.Transfer != TransferFailed {
			return s, nil
		}
		s.Transfer = TransferPending
		s.TransferErr = nil
		s.TransferStarted = false
		s.Progress = 0
		s.ProgressKnown = false

	case DraftEdited:
		if s.Publish == PublishInFlight || s.Publish == PublishSucceeded {
			return s, nil
		}
		s.Draft = models.Merge(s.Draft, e.Fields)
		if len(s.FieldErrors) > 0 {
			remaining := make(map[string][]string, len(s.FieldErrors))
			for field, msgs := range s.FieldErrors {
				if _, edited := e.Fields[field]; !edited {
					remaining[field] = msgs
				}
			}
			s.FieldErrors = remaining
		}

	case PublishRequested:
		if !s.CanPublish() {
			return s, nil
		}
		s.Publish = PublishInFlight
		s.PublishErr = nil
		s.FieldErrors = nil
		fields := models.Merge(s.Item, s.Draft, models.Fields{"id": s.ItemID})
		return s, []Effect{PatchItem{SessionID: s.ID, ItemID: s.ItemID, Fields: fields}}

	case PublishFinished:
		if s.Publish != PublishInFlight {
			return s, nil
		}
		if e.Err != nil {
			s.Publish = PublishFailed
			s.PublishErr = e.Err
			s.FieldErrors = e.FieldErrors
			return s, nil
		}
		s.Publish = PublishSucceeded
		s.Item = models.Merge(s.Item, e.Item)
	}

	return s, nil
}

// join starts the transfer the first time both the file and the endpoint are known.
func join(s Session, effects []Effect) (Session, []Effect) {
	if s.File == nil || s.Endpoint == "" || s.TransferStarted || s.Transfer != TransferPending {
		return s, effects
	}
	s.TransferStarted = true
	s.Progress = 0
	s.ProgressKnown = s.File.Size > 0
	return s, append(effects, StartTransfer{SessionID: s.ID, ItemID: s.ItemID, URL: s.Endpoint, File: s.File})
}

// draftFromItem keeps the editable fields of an existing item.
func draftFromItem(item models.Fields) models.Fields {
	draft := models.Fields{}
	for _, key := range []string{"title", "description", "downloadable", "publishedAt", "language", "copyright", "tags"} {
		if v, ok := item[key]; ok {
			draft[key] = v
		}
	}
	return draft
}
