package models

import (
	"fmt"
	"time"
)

// UploadRecord is the journaled state of one upload session.
type UploadRecord struct {
	ID          string
	Sequence    int
	FileName    string
	FileSize    int64
	ItemID      string
	EndpointURL string
	Phase       string
	Progress    float64
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the fields the journal requires.
func (r *UploadRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("upload record requires an id")
	}
	if r.FileName == "" {
		return fmt.Errorf("upload record requires a file name")
	}
	if r.Phase == "" {
		return fmt.Errorf("upload record requires a phase")
	}
	if r.Progress < 0 || r.Progress > 1 {
		return fmt.Errorf("upload progress must be within [0,1], got %v", r.Progress)
	}
	return nil
}

// Order write statuses.
const (
	OrderSaved  = "saved"
	OrderFailed = "failed"
)

// PlaylistOrder is the last order mediactl wrote for a playlist.
type PlaylistOrder struct {
	PlaylistID string
	MediaIDs   []string
	Status     string
	Error      string
	UpdatedAt  time.Time
}
