package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
)

// UploadRepository journals upload sessions.
type UploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Save inserts the record or updates the row with the same id.
//
// A sequence number is allocated only on insert.
func (r *UploadRepository) Save(record *models.UploadRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	record.UpdatedAt = now

	var sequence int
	err := r.db.QueryRow(`SELECT sequence FROM uploads WHERE id = ?`, record.ID).Scan(&sequence)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return r.insert(record, now)
	case err != nil:
		return fmt.Errorf("failed to look up upload: %w", err)
	}

	query := `
		UPDATE uploads
		SET file_name = ?, file_size = ?, item_id = ?, endpoint_url = ?, phase = ?, progress = ?, error = ?, updated_at = ?, deleted_at = NULL
		WHERE id = ?
	`

	_, err = r.db.Exec(query,
		record.FileName,
		record.FileSize,
		nullable(record.ItemID),
		nullable(record.EndpointURL),
		record.Phase,
		record.Progress,
		nullable(record.Error),
		now,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}

	record.Sequence = sequence
	return nil
}

func (r *UploadRepository) insert(record *models.UploadRecord, now time.Time) error {
	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO uploads (id, sequence, file_name, file_size, item_id, endpoint_url, phase, progress, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		record.ID,
		sequence,
		record.FileName,
		record.FileSize,
		nullable(record.ItemID),
		nullable(record.EndpointURL),
		record.Phase,
		record.Progress,
		nullable(record.Error),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	record.Sequence = sequence
	record.CreatedAt = now
	return nil
}

const uploadColumns = `id, sequence, file_name, file_size, item_id, endpoint_url, phase, progress, error, created_at, updated_at`

// Get retrieves an upload by ID, excluding soft-deleted rows.
func (r *UploadRepository) Get(id string) (*models.UploadRecord, error) {
	row := r.db.QueryRow(`SELECT `+uploadColumns+` FROM uploads WHERE id = ? AND deleted_at IS NULL`, id)

	record, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: upload %s", shared.ErrNotFound, id)
	}
	return record, err
}

// List returns the most recent uploads first. limit <= 0 returns all of them.
func (r *UploadRepository) List(limit int) ([]*models.UploadRecord, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE deleted_at IS NULL ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var records []*models.UploadRecord
	for rows.Next() {
		record, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Delete soft-deletes an upload by ID.
func (r *UploadRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE uploads SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: upload %s", shared.ErrNotFound, id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*models.UploadRecord, error) {
	var (
		record      models.UploadRecord
		itemID      sql.NullString
		endpointURL sql.NullString
		errMessage  sql.NullString
	)

	err := s.Scan(
		&record.ID,
		&record.Sequence,
		&record.FileName,
		&record.FileSize,
		&itemID,
		&endpointURL,
		&record.Phase,
		&record.Progress,
		&errMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	record.ItemID = itemID.String
	record.EndpointURL = endpointURL.String
	record.Error = errMessage.String
	return &record, nil
}
