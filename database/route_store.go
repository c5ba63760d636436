// backend/database/route_store.go
package database

import (
	"fmt"
	"log"

	"github.com/gewnthar/faresight/backend/models"
)

// CountActiveRoutes returns the number of active rows in routes_master.
// Runs on the given handle so the collector can call it inside its
// state-lock transaction.
func CountActiveRoutes(q dbtx) (int, error) {
	var total int
	err := q.QueryRow(`SELECT COUNT(*) FROM routes_master WHERE active = TRUE`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count active routes: %w", err)
	}
	return total, nil
}

// GetActiveRouteSlice returns a contiguous slice of the active-route list
// ordered by the insertion-order seq column. The ordering is what makes the
// rotation deterministic across runs.
func GetActiveRouteSlice(q dbtx, limit, offset int) ([]models.Route, error) {
	rows, err := q.Query(`
		SELECT id, origin, destination, active, COALESCE(discovered_from_hub, ''), created_at
		FROM routes_master
		WHERE active = TRUE
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query active route slice (limit %d, offset %d): %w", limit, offset, err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		var r models.Route
		if err := rows.Scan(&r.ID, &r.Origin, &r.Destination, &r.Active, &r.DiscoveredFromHub, &r.CreatedAt); err != nil {
			log.Printf("ERROR Database: Failed to scan route row: %v", err)
			continue
		}
		routes = append(routes, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route rows: %w", err)
	}
	return routes, nil
}

// InsertRoutesIgnoreDuplicates inserts discovered or seeded routes, skipping
// any (origin, destination) pair already in the catalog. Returns how many
// rows were actually inserted versus skipped as duplicates.
func InsertRoutesIgnoreDuplicates(routes []models.Route) (inserted, skipped int, err error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(routes) == 0 {
		return 0, 0, nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for routes: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT IGNORE INTO routes_master (id, origin, destination, active, discovered_from_hub)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare route insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range routes {
		hub := nullString(r.DiscoveredFromHub)
		res, err := stmt.Exec(r.ID, r.Origin, r.Destination, r.Active, hub)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert route %s-%s: %w", r.Origin, r.Destination, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected for route insert: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit route batch: %w", err)
	}

	skipped = len(routes) - inserted
	return inserted, skipped, nil
}
