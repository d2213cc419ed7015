// Package upload drives the upload of one media file: create the item, wait for
// its transfer endpoint, send the bytes, then publish the edited metadata.
//
// # State Machine
//
// [Transition] is a pure function from a [Session] and an [Event] to the next
// session and the [Effect] values to run. It holds no I/O so every ordering of
// events can be tested directly. The file and the endpoint arrive independently;
// the transfer starts exactly once, when both are known.
//
// # Orchestrator
//
// [Orchestrator] owns a session, runs effects in goroutines against the API and
// feeds their results back as events. Events carry the id of the session that
// produced them; choosing a different file starts a new session and results for
// the old one are ignored.
package upload

import (
	"errors"
	"math"
	"path/filepath"
	"time"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// Phase summarizes a session for display and journaling.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseFileChosen
	PhaseItemCreated
	PhaseEndpointKnown
	PhaseTransferring
	PhaseTransferred
	PhaseTransferFailed
	PhasePublishing
	PhasePublished
	PhasePublishFailed
	// PhaseFailed covers item creation and endpoint failures, which need a new session.
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseEmpty:          "empty",
	PhaseFileChosen:     "file_chosen",
	PhaseItemCreated:    "item_created",
	PhaseEndpointKnown:  "endpoint_known",
	PhaseTransferring:   "transferring",
	PhaseTransferred:    "transferred",
	PhaseTransferFailed: "transfer_failed",
	PhasePublishing:     "publishing",
	PhasePublished:      "published",
	PhasePublishFailed:  "publish_failed",
	PhaseFailed:         "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the session needs user action to move on.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseTransferFailed, PhasePublished, PhasePublishFailed, PhaseFailed:
		return true
	}
	return false
}

// TransferStatus is the outcome of a session's file transfer.
type TransferStatus int

const (
	TransferPending TransferStatus = iota
	TransferSucceeded
	TransferFailed
)

// PublishStatus tracks the metadata PATCH that publishes an item.
type PublishStatus int

const (
	PublishNotStarted PublishStatus = iota
	PublishInFlight
	PublishSucceeded
	PublishFailed
)

// Session is the state of one upload. Maps are replaced, never mutated, by
// [Transition], so a snapshot can be shared with readers.
type Session struct {
	ID   string
	File *File

	ItemID string
	// Item holds the server's fields for the item.
	Item     models.Fields
	Endpoint string

	// Progress is a fraction in [0,1], meaningful only when ProgressKnown.
	Progress        float64
	ProgressKnown   bool
	TransferStarted bool
	Transfer        TransferStatus
	TransferErr     error

	CreateErr   error
	EndpointErr error
	Polls       int

	Publish     PublishStatus
	PublishErr  error
	Draft       models.Fields
	FieldErrors map[string][]string
}

func (s Session) Phase() Phase {
	switch {
	case s.Publish == PublishSucceeded:
		return PhasePublished
	case s.Publish == PublishFailed:
		return PhasePublishFailed
	case s.Publish == PublishInFlight:
		return PhasePublishing
	case s.Transfer == TransferSucceeded:
		return PhaseTransferred
	case s.Transfer == TransferFailed:
		return PhaseTransferFailed
	case s.TransferStarted:
		return PhaseTransferring
	case s.CreateErr != nil || s.EndpointErr != nil:
		return PhaseFailed
	case s.Endpoint != "":
		return PhaseEndpointKnown
	case s.ItemID != "":
		return PhaseItemCreated
	case s.File != nil:
		return PhaseFileChosen
	default:
		return PhaseEmpty
	}
}

// CanPublish reports whether a publish may be requested now.
func (s Session) CanPublish() bool {
	return s.Transfer == TransferSucceeded && (s.Publish == PublishNotStarted || s.Publish == PublishFailed)
}

// Err returns the error that stopped the session, if any.
func (s Session) Err() error {
	return errors.Join(s.CreateErr, s.EndpointErr, s.TransferErr, s.PublishErr)
}

// Policy holds the tunables [Transition] needs.
type Policy struct {
	PollInterval time.Duration
	// MaxPolls bounds the number of pending endpoint answers; zero means unbounded.
	MaxPolls int
	// Backoff multiplies the poll delay after each pending answer.
	Backoff     float64
	MaxInterval time.Duration
	// Defaults are layered over the generated draft when a file is selected.
	Defaults models.Fields
}

// DefaultPolicy polls every 500ms, backing off by 1.5x up to 5s, for at most 120 answers.
func DefaultPolicy() Policy {
	return Policy{
		PollInterval: 500 * time.Millisecond,
		MaxPolls:     120,
		Backoff:      1.5,
		MaxInterval:  5 * time.Second,
	}
}

// PolicyFromConfig builds a policy from the [upload] config section.
func PolicyFromConfig(c shared.UploadConfig) Policy {
	return Policy{
		PollInterval: c.PollInterval(),
		MaxPolls:     c.MaxPolls,
		Backoff:      c.PollBackoff,
		MaxInterval:  c.MaxPollInterval(),
		Defaults:     models.Fields{"downloadable": c.DefaultDownloadable},
	}
}

// Delay returns how long to wait before the poll following the nth pending answer.
func (p Policy) Delay(n int) time.Duration {
	backoff := p.Backoff
	if backoff < 1 {
		backoff = 1
	}
	if n < 1 {
		n = 1
	}

	d := time.Duration(float64(p.PollInterval) * math.Pow(backoff, float64(n-1)))
	if p.MaxInterval > 0 && (d > p.MaxInterval || d < 0) {
		d = p.MaxInterval
	}
	return d
}

// DraftFor builds the initial metadata for a newly chosen file.
func (p Policy) DraftFor(f *File, now time.Time) models.Fields {
	title := filepath.Base(f.Name)
	if f.Name == "" || title == "." || title == "/" {
		title = "Untitled"
	}

	draft := models.Fields{
		"title":        title,
		"downloadable": true,
		"publishedAt":  now.UTC().Format(time.RFC3339),
	}
	return models.Merge(draft, p.Defaults)
}
