package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// PlaylistOrderRepository records the last order written for each playlist.
type PlaylistOrderRepository struct {
	db *sql.DB
}

func NewPlaylistOrderRepository(db *sql.DB) *PlaylistOrderRepository {
	return &PlaylistOrderRepository{db: db}
}

// Save upserts the order for order.PlaylistID.
func (r *PlaylistOrderRepository) Save(order *models.PlaylistOrder) error {
	if order.PlaylistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if order.Status != models.OrderSaved && order.Status != models.OrderFailed {
		return fmt.Errorf("%w: order status %q", shared.ErrInvalidInput, order.Status)
	}

	ids := order.MediaIDs
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode media ids: %w", err)
	}

	order.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO playlist_orders (playlist_id, media_ids, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (playlist_id) DO UPDATE SET
			media_ids = excluded.media_ids,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, order.PlaylistID, string(data), order.Status, nullable(order.Error), order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save playlist order: %w", err)
	}
	return nil
}

// Get returns the last order written for playlistID.
func (r *PlaylistOrderRepository) Get(playlistID string) (*models.PlaylistOrder, error) {
	var (
		order   models.PlaylistOrder
		ids     string
		message sql.NullString
	)

	err := r.db.QueryRow(
		`SELECT playlist_id, media_ids, status, error, updated_at FROM playlist_orders WHERE playlist_id = ?`,
		playlistID,
	).Scan(&order.PlaylistID, &ids, &order.Status, &message, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no order recorded for playlist %s", shared.ErrNotFound, playlistID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist order: %w", err)
	}

	if err := json.Unmarshal([]byte(ids), &order.MediaIDs); err != nil {
		return nil, fmt.Errorf("failed to decode media ids: %w", err)
	}
	order.Error = message.String
	return &order, nil
}
