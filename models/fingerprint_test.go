// backend/models/fingerprint_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferFingerprintDeterminism(t *testing.T) {
	depDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	depTime := time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC)

	a := OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 123.45)
	b := OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 123.45)

	require.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", a)
}

func TestOfferFingerprintAirlineCaseInsensitive(t *testing.T) {
	depDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	depTime := time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC)

	upper := OfferFingerprint("DEL", "BOM", depDate, "INDIGO", depTime, 100)
	mixed := OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 100)

	assert.Equal(t, upper, mixed)
}

func TestOfferFingerprintFieldSensitivity(t *testing.T) {
	depDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	depTime := time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC)
	base := OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 100)

	variants := map[string]string{
		"origin":         OfferFingerprint("BLR", "BOM", depDate, "IndiGo", depTime, 100),
		"destination":    OfferFingerprint("DEL", "MAA", depDate, "IndiGo", depTime, 100),
		"departure date": OfferFingerprint("DEL", "BOM", depDate.AddDate(0, 0, 1), "IndiGo", depTime, 100),
		"airline":        OfferFingerprint("DEL", "BOM", depDate, "Vistara", depTime, 100),
		"departure time": OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime.Add(time.Minute), 100),
		"price":          OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 101),
	}
	for field, digest := range variants {
		assert.NotEqual(t, base, digest, "changing %s must change the fingerprint", field)
	}
}

func TestOfferFingerprintPriceRounding(t *testing.T) {
	depDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	depTime := time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC)

	// Prices that collapse under two-decimal rounding collapse to one digest.
	assert.Equal(t,
		OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 100.004),
		OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 100.00))

	// A third-decimal difference that survives rounding does not.
	assert.NotEqual(t,
		OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 100.02),
		OfferFingerprint("DEL", "BOM", depDate, "IndiGo", depTime, 100.00))
}

func TestComputeFingerprintFillsHash(t *testing.T) {
	offer := FlightOffer{
		Origin:        "DEL",
		Destination:   "BOM",
		DepartureDate: time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC),
		DepartureTime: time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC),
		Airline:       "IndiGo",
		Price:         88.5,
	}
	offer.ComputeFingerprint()

	require.NotEmpty(t, offer.OfferHash)
	assert.Equal(t,
		OfferFingerprint("DEL", "BOM", offer.DepartureDate, "IndiGo", offer.DepartureTime, 88.5),
		offer.OfferHash)
}
