// backend/catalog/seed.go
package catalog

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"

	"github.com/gewnthar/faresight/backend/database"
	"github.com/gewnthar/faresight/backend/models"
	"github.com/gewnthar/faresight/backend/utils"
)

// LoadRoutesCSV parses a curated route seed file (header: origin,
// destination, hub). Codes are normalized, malformed rows are rejected, and
// duplicate pairs within the file collapse to their first occurrence.
func LoadRoutesCSV(path string) ([]models.Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route seed file: %w", err)
	}

	var rows []models.Route
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse route seed CSV %s: %w", path, err)
	}

	seen := make(map[string]bool)
	routes := make([]models.Route, 0, len(rows))
	for i, row := range rows {
		origin := utils.NormalizeAirportCode(row.Origin)
		destination := utils.NormalizeAirportCode(row.Destination)
		if origin == "" || destination == "" {
			return nil, fmt.Errorf("route seed row %d is missing origin or destination", i+1)
		}
		if origin == destination {
			return nil, fmt.Errorf("route seed row %d has identical endpoints (%s)", i+1, origin)
		}

		key := origin + "-" + destination
		if seen[key] {
			continue
		}
		seen[key] = true

		routes = append(routes, models.Route{
			ID:                uuid.NewString(),
			Origin:            origin,
			Destination:       destination,
			Active:            true,
			DiscoveredFromHub: utils.NormalizeAirportCode(row.DiscoveredFromHub),
		})
	}
	return routes, nil
}

// SeedRoutes loads the curated catalog file into routes_master, skipping
// pairs that already exist.
func SeedRoutes(path string) (inserted, skipped int, err error) {
	routes, err := LoadRoutesCSV(path)
	if err != nil {
		return 0, 0, err
	}
	if len(routes) == 0 {
		log.Printf("WARN Catalog: Seed file %s contained no routes.", path)
		return 0, 0, nil
	}

	inserted, skipped, err = database.InsertRoutesIgnoreDuplicates(routes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to seed routes from %s: %w", path, err)
	}

	log.Printf("Catalog: Seeded %d new routes from %s (%d already present).", inserted, path, skipped)
	return inserted, skipped, nil
}
