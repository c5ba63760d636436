// backend/providers/provider.go
package providers

import (
	"context"
	"errors"
	"time"

	"github.com/gewnthar/faresight/backend/models"
)

// QuotaUnlimited is the RemainingQuota sentinel for providers with no
// meaningful call budget (the synthetic generator).
const QuotaUnlimited = -1

// ErrRateLimited signals that the upstream API rejected a call for being
// over quota. It is the only error the backoff retrier treats as retryable;
// everything else aborts the attempt for that route/date.
var ErrRateLimited = errors.New("provider rate limited")

// Provider is the uniform contract every flight data source satisfies.
//
// All returned offers are denominated in EUR and tagged with Name() as their
// provenance, so the downstream store and ML pipeline stay
// provider-agnostic.
type Provider interface {
	// Name is the stable identifier recorded on every offer this provider
	// produces (e.g. "amadeus", "aviationstack", "synthetic").
	Name() string

	// IsAvailable reports whether the provider is configured and has not
	// exhausted its own quota tracking. Never fails.
	IsAvailable() bool

	// RemainingQuota is a non-negative estimate of calls left, or
	// QuotaUnlimited.
	RemainingQuota() int

	// FetchOffers returns offers for one route and departure date. A nil or
	// empty slice with a nil error means "nothing found"; ErrRateLimited
	// means the caller may retry after backing off; any other error is
	// terminal for this attempt.
	FetchOffers(ctx context.Context, origin, destination string, date time.Time) ([]models.FlightOffer, error)
}

// RouteStatsFunc supplies historical price statistics for a route, filtered
// to a single provider's rows when providerName is non-empty. Returns nil
// when no priced history exists. The estimating providers cache results for
// the lifetime of one run.
type RouteStatsFunc func(origin, destination, providerName string) (*models.RouteStats, error)
