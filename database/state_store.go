// backend/database/state_store.go
package database

import (
	"database/sql"
	"fmt"

	"github.com/gewnthar/faresight/backend/models"
)

// GetStateForUpdate reads the singleton collector_state row under an
// exclusive row lock (SELECT ... FOR UPDATE). The lock is held until the
// caller commits or rolls back the transaction, which is what keeps a second
// collection run from sizing its batch against stale offset/quota data.
//
// If the table is empty a zeroed row is inserted first so the lock always
// has something to hold.
func GetStateForUpdate(tx *sql.Tx) (*models.CollectorState, error) {
	state, err := scanState(tx)
	if err == sql.ErrNoRows {
		_, err = tx.Exec(`INSERT INTO collector_state (last_route_offset, api_calls_today, last_run_date) VALUES (0, 0, CURRENT_DATE)`)
		if err != nil {
			return nil, fmt.Errorf("failed to seed collector_state row: %w", err)
		}
		state, err = scanState(tx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collector_state for update: %w", err)
	}
	return state, nil
}

func scanState(tx *sql.Tx) (*models.CollectorState, error) {
	var s models.CollectorState
	err := tx.QueryRow(`
		SELECT id, last_route_offset, api_calls_today, last_run_date, updated_at
		FROM collector_state
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE
	`).Scan(&s.ID, &s.LastRouteOffset, &s.ApiCallsToday, &s.LastRunDate, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveState writes the rotation offset and call counter. Called after each
// finished route, outside the sizing lock, so an interrupted run loses at
// most one route's worth of progress.
func SaveState(newOffset, apiCallsToday int) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	_, err := DB.Exec(`
		UPDATE collector_state
		SET last_route_offset = ?,
		    api_calls_today = ?,
		    last_run_date = CURRENT_DATE,
		    updated_at = NOW()
		WHERE id = (SELECT id FROM (SELECT id FROM collector_state ORDER BY id ASC LIMIT 1) AS s)
	`, newOffset, apiCallsToday)
	if err != nil {
		return fmt.Errorf("failed to save collector state: %w", err)
	}
	return nil
}
