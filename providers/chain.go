// backend/providers/chain.go
package providers

import (
	"context"
	"log"
	"time"

	"github.com/gewnthar/faresight/backend/models"
)

// UsageStats are run-scoped counters for one provider in the chain.
type UsageStats struct {
	Calls     int
	Successes int
	Offers    int
}

type chainEntry struct {
	provider Provider
	// network providers are invoked through the backoff retrier; the
	// synthetic generator is called directly.
	network bool
}

// Chain orders providers by priority and falls through on unavailability or
// empty results. The order is a fixed design invariant: real priced data
// first, estimated schedules second, synthetic strictly last.
type Chain struct {
	entries []chainEntry
	retrier *Retrier
	stats   map[string]*UsageStats
	total   int
}

// NewChain wires the fixed primary → secondary → fallback failover order.
func NewChain(retrier *Retrier, primary, secondary, fallback Provider) *Chain {
	c := &Chain{
		entries: []chainEntry{
			{provider: primary, network: true},
			{provider: secondary, network: true},
			{provider: fallback, network: false},
		},
		retrier: retrier,
		stats:   make(map[string]*UsageStats),
	}
	for _, e := range c.entries {
		c.stats[e.provider.Name()] = &UsageStats{}
	}
	return c
}

// FetchOffers tries each provider in priority order and returns the first
// non-empty result. Unavailable providers are skipped without counting a
// call. All providers exhausted is not an error; the caller records it as a
// failed route/date combination.
func (c *Chain) FetchOffers(ctx context.Context, origin, destination string, date time.Time) []models.FlightOffer {
	for _, entry := range c.entries {
		name := entry.provider.Name()

		if !entry.provider.IsAvailable() {
			log.Printf("[Failover] %s unavailable for %s-%s. Trying next provider.", name, origin, destination)
			continue
		}

		stats := c.stats[name]
		stats.Calls++

		var offers []models.FlightOffer
		if entry.network {
			offers = c.retrier.Fetch(ctx, entry.provider, origin, destination, date)
		} else {
			var err error
			offers, err = entry.provider.FetchOffers(ctx, origin, destination, date)
			if err != nil {
				log.Printf("[Failover] %s failed for %s-%s: %v", name, origin, destination, err)
				offers = nil
			}
		}

		if len(offers) > 0 {
			stats.Successes++
			stats.Offers += len(offers)
			c.total += len(offers)
			return offers
		}

		log.Printf("[Failover] %s empty for %s-%s. Trying next provider.", name, origin, destination)
	}

	log.Printf("[Failover] All providers exhausted for %s-%s on %s.", origin, destination, date.Format("2006-01-02"))
	return nil
}

// Stats returns the run-scoped usage counters for one provider.
func (c *Chain) Stats(providerName string) UsageStats {
	if s, ok := c.stats[providerName]; ok {
		return *s
	}
	return UsageStats{}
}

// TotalOffers is the number of offers the chain returned across the run.
func (c *Chain) TotalOffers() int { return c.total }

// LogSummary prints the per-provider usage block at the end of a run.
func (c *Chain) LogSummary() {
	log.Println("==================================================")
	log.Println("PROVIDER USAGE SUMMARY")
	log.Println("==================================================")
	for _, entry := range c.entries {
		name := entry.provider.Name()
		s := c.stats[name]
		log.Printf("  %-14s %d/%d successful calls, %d offers", name+":", s.Successes, s.Calls, s.Offers)
	}
	for _, entry := range c.entries {
		if q := entry.provider.RemainingQuota(); q != QuotaUnlimited {
			log.Printf("  %s remaining quota: %d", entry.provider.Name(), q)
		}
	}
	log.Printf("  Total offers:  %d", c.total)
	log.Println("==================================================")
}
