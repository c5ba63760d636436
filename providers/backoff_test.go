// backend/providers/backoff_test.go
package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/faresight/backend/models"
)

// flakyProvider rate-limits a set number of calls before succeeding.
type flakyProvider struct {
	rateLimited int
	offers      []models.FlightOffer
	err         error
	calls       int
}

func (f *flakyProvider) Name() string        { return "flaky" }
func (f *flakyProvider) IsAvailable() bool   { return true }
func (f *flakyProvider) RemainingQuota() int { return QuotaUnlimited }

func (f *flakyProvider) FetchOffers(ctx context.Context, origin, destination string, date time.Time) ([]models.FlightOffer, error) {
	f.calls++
	if f.calls <= f.rateLimited {
		return nil, ErrRateLimited
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.offers, nil
}

func recordingRetrier(maxAttempts int, slept *[]time.Duration) *Retrier {
	r := NewRetrier(maxAttempts, 2*time.Second, time.Microsecond)
	r.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return r
}

func TestRetrierBackoffDoubles(t *testing.T) {
	var slept []time.Duration
	r := recordingRetrier(3, &slept)
	p := &flakyProvider{rateLimited: 2, offers: fakeOffers("flaky", 1)}

	offers := r.Fetch(context.Background(), p, "DEL", "BOM", time.Now())

	require.Len(t, offers, 1)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	var slept []time.Duration
	r := recordingRetrier(3, &slept)
	p := &flakyProvider{rateLimited: 10}

	offers := r.Fetch(context.Background(), p, "DEL", "BOM", time.Now())

	assert.Nil(t, offers)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, slept)
}

func TestRetrierTerminalErrorAbortsWithoutSleep(t *testing.T) {
	var slept []time.Duration
	r := recordingRetrier(3, &slept)
	p := &flakyProvider{err: errors.New("400 bad request")}

	offers := r.Fetch(context.Background(), p, "DEL", "BOM", time.Now())

	assert.Nil(t, offers)
	assert.Equal(t, 1, p.calls, "terminal errors must not be retried")
	assert.Empty(t, slept)
}

func TestRetrierCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrier(3, 2*time.Second, time.Hour)
	p := &flakyProvider{offers: fakeOffers("flaky", 1)}

	offers := r.Fetch(ctx, p, "DEL", "BOM", time.Now())

	assert.Nil(t, offers)
	assert.Equal(t, 0, p.calls, "pacing wait must observe cancellation before calling out")
}

func TestNewRetrierFloorsAttempts(t *testing.T) {
	var slept []time.Duration
	r := recordingRetrier(0, &slept)
	p := &flakyProvider{rateLimited: 10}

	assert.Nil(t, r.Fetch(context.Background(), p, "DEL", "BOM", time.Now()))
	assert.Equal(t, 1, p.calls)
}
