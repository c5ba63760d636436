// backend/providers/backoff.go
package providers

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/gewnthar/faresight/backend/models"
)

// Retrier wraps a single provider call with bounded exponential retry on
// rate-limit signals. Before every attempt it waits on a pacing limiter so
// even first-try calls stay under the provider's per-second limit.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	limiter     *rate.Limiter

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewRetrier builds a retrier with the given attempt cap, base backoff delay
// and pacing interval (one call per pacing interval).
func NewRetrier(maxAttempts int, baseDelay, pacing time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		limiter:     rate.NewLimiter(rate.Every(pacing), 1),
		sleep:       time.Sleep,
	}
}

// Fetch invokes the provider for one route/date, retrying on ErrRateLimited
// with delays of baseDelay × 2^attempt. Non-rate-limit failures abort
// immediately: a bad route or a downstream 5xx will not self-resolve within
// one run. Exhausting all attempts is logged and yields an empty result.
func (r *Retrier) Fetch(ctx context.Context, p Provider, origin, destination string, date time.Time) []models.FlightOffer {
	dateStr := date.Format("2006-01-02")

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			log.Printf("[%s] Pacing wait cancelled for %s-%s: %v", p.Name(), origin, destination, err)
			return nil
		}

		offers, err := p.FetchOffers(ctx, origin, destination, date)
		if err == nil {
			return offers
		}

		if errors.Is(err, ErrRateLimited) {
			delay := time.Duration(float64(r.baseDelay) * float64(int(1)<<attempt))
			log.Printf("[%s] 429 Rate Limited. Backing off for %s... (attempt %d/%d)", p.Name(), delay, attempt+1, r.maxAttempts)
			r.sleep(delay)
			continue
		}

		log.Printf("[%s] Skipping %s-%s on %s: %v", p.Name(), origin, destination, dateStr, err)
		return nil
	}

	log.Printf("[%s] Maximum retries exhausted for %s-%s on %s.", p.Name(), origin, destination, dateStr)
	return nil
}
