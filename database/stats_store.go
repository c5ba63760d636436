// backend/database/stats_store.go
package database

import (
	"database/sql"
	"fmt"

	"github.com/gewnthar/faresight/backend/models"
)

// GetRouteStats aggregates historical price statistics for one route. When
// providerName is non-empty only rows from that provider are considered (the
// estimating providers restrict themselves to observed amadeus prices so
// synthetic rows never feed back into their own estimates).
//
// Returns nil when the route has no priced history at all.
func GetRouteStats(origin, destination, providerName string) (*models.RouteStats, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	query := `
		SELECT AVG(price), STDDEV(price), MIN(price), MAX(price), AVG(distance_km), COUNT(*)
		FROM flight_offers
		WHERE origin = ? AND destination = ?
		  AND price > 0
	`
	args := []any{origin, destination}
	if providerName != "" {
		query += ` AND provider_name = ?`
		args = append(args, providerName)
	}

	var mean, std, min, max, avgDist sql.NullFloat64
	var count int
	err := DB.QueryRow(query, args...).Scan(&mean, &std, &min, &max, &avgDist, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to query route stats for %s-%s: %w", origin, destination, err)
	}
	if count == 0 || !mean.Valid {
		return nil, nil
	}

	stats := &models.RouteStats{
		Mean:        mean.Float64,
		Min:         min.Float64,
		Max:         max.Float64,
		SampleCount: count,
	}
	if std.Valid && std.Float64 > 0 {
		stats.StdDev = std.Float64
	} else {
		// Single-sample routes have no spread; assume 20% of the mean.
		stats.StdDev = mean.Float64 * 0.2
	}
	if avgDist.Valid {
		d := avgDist.Float64
		stats.AvgDistance = &d
	}
	return stats, nil
}
