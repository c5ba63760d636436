// backend/services/collector_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gewnthar/faresight/backend/config"
	"github.com/gewnthar/faresight/backend/database"
	"github.com/gewnthar/faresight/backend/models"
	"github.com/gewnthar/faresight/backend/providers"
)

// routeSliceFunc abstracts the route-slice query so batch selection can be
// exercised without a live handle.
type routeSliceFunc func(limit, offset int) ([]models.Route, error)

// selectRouteBatch takes the batch at the current rotation offset. An empty
// slice despite a non-empty catalog means the offset went stale after the
// catalog shrank; the offset is reset to 0 and the take retried once. An
// empty batch even then tells the caller to terminate without mutating
// state.
func selectRouteBatch(fetch routeSliceFunc, batchSize, offset int) ([]models.Route, int, error) {
	routes, err := fetch(batchSize, offset)
	if err != nil {
		return nil, offset, err
	}
	if len(routes) == 0 {
		log.Println("WARN Service: Batch empty despite active routes. Resetting rotation offset to 0.")
		offset = 0
		routes, err = fetch(batchSize, offset)
		if err != nil {
			return nil, offset, err
		}
	}
	return routes, offset, nil
}

// applyCallCeiling enforces the MAX_API_CALLS_PER_RUN manual guardrail: when
// the batch would exceed the env-supplied call ceiling, it is shrunk to as
// many whole routes as fit, never below one. An unparseable value is ignored
// rather than blocking the run.
func applyCallCeiling(routes []models.Route, callsPerRoute int, raw string) []models.Route {
	if raw == "" {
		return routes
	}
	maxCalls, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("WARN Service: Ignoring unparseable MAX_API_CALLS_PER_RUN=%q.", raw)
		return routes
	}
	expected := len(routes) * callsPerRoute
	if expected <= maxCalls {
		return routes
	}
	allowed := maxCalls / callsPerRoute
	if allowed < 1 {
		allowed = 1
	}
	log.Printf("WARN Service: Expected API calls %d exceed MAX_API_CALLS_PER_RUN (%d). Reducing batch from %d to %d routes.",
		expected, maxCalls, len(routes), allowed)
	return routes[:allowed]
}

// runStats are the run-level counters reported in the final summary.
type runStats struct {
	fetched    int
	inserted   int
	duplicates int
	failures   int
}

// RunCollection executes one collection run: size the batch under the state
// lock, release the lock, then fetch/dedup/store each route and date
// combination, committing rotation state after every finished route.
//
// Only three conditions abort the whole run: failing to acquire the state
// row, an empty route catalog, or a computed batch size below one. Every
// other failure is local to a single route/date combination.
func RunCollection(ctx context.Context) error {
	log.Println("Service: Initializing collection run...")

	cfg := config.AppConfig.Collector
	today := time.Now()
	callsPerRoute := len(cfg.DateOffsets)
	stats := runStats{}

	// --- Sizing and selection under the exclusive state lock. The lock is
	// held only for this block so a long fetch phase never blocks anyone.
	tx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin state transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	totalRoutes, err := database.CountActiveRoutes(tx)
	if err != nil {
		return err
	}
	if totalRoutes == 0 {
		log.Println("WARN Service: No active routes in routes_master. Seed or discover routes first. Exiting without mutating state.")
		return nil
	}

	state, err := database.GetStateForUpdate(tx)
	if err != nil {
		return fmt.Errorf("failed to acquire collector state lock: %w", err)
	}

	currentOffset := state.LastRouteOffset
	apiCallsToday := 0
	if state.SameDay(today) {
		apiCallsToday = state.ApiCallsToday
	}

	plan := PlanBatch(today, QuotaInputs{
		DailyQuota:        cfg.DailyApiQuota,
		ApiCallsToday:     apiCallsToday,
		RunsPerDay:        cfg.RunsPerDay,
		BufferPercent:     cfg.ApiBufferPercent,
		CallsPerRoute:     callsPerRoute,
		MaxRoutesPerRun:   cfg.MaxRoutesPerRun,
		TotalActiveRoutes: totalRoutes,
	})

	log.Printf("Service: Remaining API quota today: %d", plan.RemainingCalls)
	log.Printf("Service: Runs left today: %d", plan.RunsLeft)
	log.Printf("Service: Safe calls this run: %d", plan.SafeCalls)
	log.Printf("Service: Calls per route: %d", callsPerRoute)
	log.Printf("Service: Batch size: %d", plan.BatchSize)

	if plan.BatchSize < 1 {
		log.Println("WARN Service: Insufficient quota for a minimum batch. Skipping this run.")
		return nil
	}

	routes, currentOffset, err := selectRouteBatch(func(limit, offset int) ([]models.Route, error) {
		return database.GetActiveRouteSlice(tx, limit, offset)
	}, plan.BatchSize, currentOffset)
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		log.Println("WARN Service: No routes fetched after offset reset. Terminating without mutating state.")
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to release state lock: %w", err)
	}
	committed = true

	// Optional manual guardrail for incident response: an env-supplied call
	// ceiling can shrink the batch further after quota sizing.
	routes = applyCallCeiling(routes, callsPerRoute, os.Getenv("MAX_API_CALLS_PER_RUN"))

	batchSize := len(routes)
	totalCombos := batchSize * callsPerRoute
	log.Printf("Service: Total active routes: %d", totalRoutes)
	log.Printf("Service: Current offset: %d, processing routes %d-%d", currentOffset, currentOffset+1, currentOffset+batchSize)
	log.Printf("Service: Targeting %d route/date combinations.", totalCombos)

	// Providers and their caches are constructed fresh per run.
	chain := providers.NewChain(
		providers.NewRetrier(
			cfg.MaxRetries,
			time.Duration(cfg.BaseBackoffSeconds*float64(time.Second)),
			time.Duration(cfg.PacingSeconds*float64(time.Second)),
		),
		providers.NewAmadeus(config.AppConfig.Amadeus),
		providers.NewAviationStack(config.AppConfig.AviationStack, database.GetRouteStats),
		providers.NewSynthetic(config.AppConfig.Synthetic, database.GetRouteStats),
	)

	combo := 0
	interrupted := false

routeLoop:
	for i, route := range routes {
		for _, dayOffset := range cfg.DateOffsets {
			select {
			case <-ctx.Done():
				log.Println("WARN Service: Run cancelled. Committed progress is preserved.")
				interrupted = true
				break routeLoop
			default:
			}

			combo++
			if stats.inserted >= cfg.MaxOffersPerRun {
				log.Printf("WARN Service: SAFETY CAP HIT: %d offers inserted. Terminating loop early.", cfg.MaxOffersPerRun)
				interrupted = true
				break routeLoop
			}

			targetDate := today.AddDate(0, 0, dayOffset)
			log.Printf("Service: [%d/%d] Fetching %s -> %s on %s", combo, totalCombos, route.Origin, route.Destination, targetDate.Format("2006-01-02"))

			offers := chain.FetchOffers(ctx, route.Origin, route.Destination, targetDate)
			if len(offers) == 0 {
				stats.failures++
				continue
			}
			stats.fetched += len(offers)

			inserted, skipped, err := database.SaveOffers(offers)
			if err != nil {
				// Conservative accounting: the rolled-back batch counts as
				// fully skipped and will be re-fetched on a later run.
				log.Printf("ERROR Service: Offer batch failed for %s-%s: %v", route.Origin, route.Destination, err)
				stats.duplicates += len(offers)
				continue
			}
			stats.inserted += inserted
			stats.duplicates += skipped
			log.Printf("Service:     Found: %d | Saved: %d | Skipped: %d", len(offers), inserted, skipped)
		}

		// Commit rotation state after each finished route: an interruption
		// loses at most one route's progress and never double counts quota.
		progressOffset := NextOffset(currentOffset, i+1, totalRoutes)
		progressCalls := apiCallsToday + (i+1)*callsPerRoute
		if err := database.SaveState(progressOffset, progressCalls); err != nil {
			log.Printf("ERROR Service: Failed to persist collector state: %v", err)
		}
	}

	if !interrupted {
		log.Printf("Service: Next rotation offset set to %d.", NextOffset(currentOffset, batchSize, totalRoutes))
	}

	log.Println("========================================")
	log.Println("COLLECTION RUN SUMMARY")
	log.Println("========================================")
	log.Printf("Total Offers Fetched:    %d", stats.fetched)
	log.Printf("New Offers Inserted:     %d", stats.inserted)
	log.Printf("Duplicates Skipped:      %d", stats.duplicates)
	log.Printf("Failed Route Queries:    %d", stats.failures)
	log.Println("========================================")
	chain.LogSummary()

	return nil
}
