// backend/models/state.go
package models

import "time"

// CollectorState is the singleton bookkeeping row the collection run reads
// under an exclusive lock and advances after each finished route.
//
// ApiCallsToday is only meaningful while LastRunDate is the current calendar
// date; the quota scheduler treats it as zero the first run of a new day.
type CollectorState struct {
	ID              int64     `db:"id"`
	LastRouteOffset int       `db:"last_route_offset"`
	ApiCallsToday   int       `db:"api_calls_today"`
	LastRunDate     time.Time `db:"last_run_date"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// SameDay reports whether the persisted last-run date falls on the given
// wall-clock day.
func (s *CollectorState) SameDay(now time.Time) bool {
	return s.LastRunDate.Format("2006-01-02") == now.Format("2006-01-02")
}
