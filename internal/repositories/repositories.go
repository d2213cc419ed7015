package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// rowQuerier is satisfied by both [sql.DB] and [sql.Tx].
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// NextSequence bumps the counter in "{table}_sequence" and returns the new value in one statement.
//
// Sequence numbers order journal rows for display; they are not sent to the API.
func NextSequence(q rowQuerier, table string) (int, error) {
	var seq int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	switch err := q.QueryRow(query).Scan(&seq); {
	case errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("sequence for %s has no counter row", table)
	case err != nil:
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return seq, nil
}

// nullable maps empty strings to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
