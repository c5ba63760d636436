// backend/models/route.go
package models

import "time"

// Route represents one row of routes_master, the catalog the collector
// rotates through. Rows are created by route discovery or the seed loader;
// the collector itself only ever reads them.
type Route struct {
	ID          string `db:"id" csv:"-"` // uuid
	Origin      string `db:"origin" csv:"origin"`
	Destination string `db:"destination" csv:"destination"`
	Active      bool   `db:"active" csv:"-"`

	// DiscoveredFromHub records which hub airport surfaced this route during
	// discovery. Empty for seeded routes.
	DiscoveredFromHub string `db:"discovered_from_hub" csv:"hub,omitempty"`

	CreatedAt time.Time `db:"created_at" csv:"-"`
}

// RouteStats holds aggregate price history for one (origin, destination)
// pair, used by the estimating providers to synthesize plausible prices.
type RouteStats struct {
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	AvgDistance *float64 // km, nil when no row carries a distance
	SampleCount int
}
