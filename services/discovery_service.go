// backend/services/discovery_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gewnthar/faresight/backend/config"
	"github.com/gewnthar/faresight/backend/database"
	"github.com/gewnthar/faresight/backend/models"
	"github.com/gewnthar/faresight/backend/providers"
	"github.com/gewnthar/faresight/backend/utils"
)

// RunDiscovery grows the route catalog by asking the primary provider for
// the direct destinations of each configured hub. Pairs are normalized
// lexicographically so a later discovery of the reverse direction cannot
// create a duplicate catalog entry.
func RunDiscovery(ctx context.Context) error {
	cfg := config.AppConfig.Discovery
	if len(cfg.Hubs) == 0 {
		log.Println("WARN Service: No discovery hubs configured. Nothing to do.")
		return nil
	}

	amadeus := providers.NewAmadeus(config.AppConfig.Amadeus)
	if !amadeus.IsAvailable() {
		return fmt.Errorf("route discovery requires amadeus credentials")
	}

	totalNew := 0
	totalSkipped := 0

	for _, rawHub := range cfg.Hubs {
		hub := utils.NormalizeAirportCode(rawHub)
		log.Printf("Service: Targeting hub [%s] for route discovery...", hub)

		destinations, err := amadeus.Destinations(ctx, hub, cfg.MaxDestinationsPerHub)
		if err != nil {
			log.Printf("WARN Service: Destination lookup failed for %s: %v. Skipping hub.", hub, err)
			continue
		}
		if len(destinations) == 0 {
			log.Printf("WARN Service: No destinations retrieved for %s. Skipping hub.", hub)
			continue
		}
		log.Printf("Service: Found %d raw destinations for %s.", len(destinations), hub)

		var routes []models.Route
		for _, dest := range destinations {
			if dest == hub {
				continue
			}
			origin, destination := hub, dest
			if destination < origin {
				origin, destination = destination, origin
			}
			routes = append(routes, models.Route{
				ID:                uuid.NewString(),
				Origin:            origin,
				Destination:       destination,
				Active:            true,
				DiscoveredFromHub: hub,
			})
		}

		inserted, skipped, err := database.InsertRoutesIgnoreDuplicates(routes)
		if err != nil {
			log.Printf("ERROR Service: Failed to persist routes for hub %s: %v", hub, err)
			continue
		}
		totalNew += inserted
		totalSkipped += skipped
		log.Printf("Service: Hub [%s] -> inserted %d new routes, skipped %d existing.", hub, inserted, skipped)

		// Pace hub lookups the same way the collector paces searches.
		select {
		case <-ctx.Done():
			log.Println("WARN Service: Discovery cancelled.")
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	log.Println("========================================")
	log.Println("ROUTE DISCOVERY SUMMARY")
	log.Println("========================================")
	log.Printf("Total Routes Added:   %d", totalNew)
	log.Printf("Total Routes Skipped: %d", totalSkipped)
	log.Println("========================================")
	return nil
}
