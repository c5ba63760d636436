// backend/models/offer_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOffer() FlightOffer {
	dep := time.Date(2026, 3, 15, 9, 40, 0, 0, time.UTC)
	return FlightOffer{
		Origin:        "DEL",
		Destination:   "BOM",
		DepartureDate: dep,
		Price:         123.45,
		Currency:      "EUR",
		Airline:       "IndiGo",
		DepartureTime: dep,
		ArrivalTime:   dep.Add(2 * time.Hour),
		Duration:      "PT2H0M",
		ProviderName:  "amadeus",
		ScrapedAt:     time.Now(),
	}
}

func TestValidateAcceptsWellFormedOffer(t *testing.T) {
	offer := validOffer()
	require.NoError(t, offer.Validate())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FlightOffer)
	}{
		{"missing origin", func(o *FlightOffer) { o.Origin = "" }},
		{"missing destination", func(o *FlightOffer) { o.Destination = "" }},
		{"missing airline", func(o *FlightOffer) { o.Airline = "" }},
		{"zero price", func(o *FlightOffer) { o.Price = 0 }},
		{"negative price", func(o *FlightOffer) { o.Price = -5 }},
		{"missing currency", func(o *FlightOffer) { o.Currency = "" }},
		{"zero departure time", func(o *FlightOffer) { o.DepartureTime = time.Time{} }},
		{"missing duration", func(o *FlightOffer) { o.Duration = "" }},
		{"missing provider", func(o *FlightOffer) { o.ProviderName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := validOffer()
			tt.mutate(&offer)
			assert.Error(t, offer.Validate())
		})
	}
}

func TestSameDay(t *testing.T) {
	state := CollectorState{LastRunDate: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)}

	assert.True(t, state.SameDay(time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC)))
	assert.False(t, state.SameDay(time.Date(2026, 8, 30, 0, 1, 0, 0, time.UTC)))
}
