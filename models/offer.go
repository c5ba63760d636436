// backend/models/offer.go
package models

import (
	"fmt"
	"time"
)

// FlightOffer is a single priced itinerary observation as stored in flight_offers.
// Rows are append-only: once inserted an offer is never mutated (the one-time
// distance backfill is handled by an external job, not this core).
type FlightOffer struct {
	ID int64 `db:"id"`

	// OfferHash is the deterministic dedup fingerprint (lowercase SHA-256 hex).
	// Unique in the table; a conflicting insert is silently skipped.
	OfferHash string `db:"offer_hash"`

	Origin        string     `db:"origin"`
	Destination   string     `db:"destination"`
	DepartureDate time.Time  `db:"departure_date"`
	ReturnDate    *time.Time `db:"return_date"`
	Price         float64    `db:"price"`
	Currency      string     `db:"currency"`
	Airline       string     `db:"airline"`
	DepartureTime time.Time  `db:"departure_time"`
	ArrivalTime   time.Time  `db:"arrival_time"`
	Stops         int        `db:"stops"`
	Duration      string     `db:"duration"` // ISO-8601, e.g. "PT2H15M"

	DistanceKm    *float64 `db:"distance_km"`
	BookableSeats *int     `db:"number_of_bookable_seats"`
	CabinClass    string   `db:"cabin_class"`
	FareBasis     string   `db:"fare_basis"`

	ProviderName string    `db:"provider_name"`
	ScrapedAt    time.Time `db:"scraped_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// Validate checks the fields the offer table declares NOT NULL. Offers that
// fail here must be rejected before any storage call is attempted.
func (o *FlightOffer) Validate() error {
	if o.Origin == "" || o.Destination == "" {
		return fmt.Errorf("offer is missing origin/destination (%q-%q)", o.Origin, o.Destination)
	}
	if o.Airline == "" {
		return fmt.Errorf("offer %s-%s is missing an airline", o.Origin, o.Destination)
	}
	if o.Price <= 0 {
		return fmt.Errorf("offer %s-%s has non-positive price %.2f", o.Origin, o.Destination, o.Price)
	}
	if o.Currency == "" {
		return fmt.Errorf("offer %s-%s is missing a currency", o.Origin, o.Destination)
	}
	if o.DepartureTime.IsZero() || o.ArrivalTime.IsZero() || o.DepartureDate.IsZero() {
		return fmt.Errorf("offer %s-%s has zero departure/arrival timestamps", o.Origin, o.Destination)
	}
	if o.Duration == "" {
		return fmt.Errorf("offer %s-%s is missing a duration", o.Origin, o.Destination)
	}
	if o.ProviderName == "" {
		return fmt.Errorf("offer %s-%s is missing a provider name", o.Origin, o.Destination)
	}
	return nil
}

// ComputeFingerprint fills OfferHash from the offer's identity fields.
func (o *FlightOffer) ComputeFingerprint() {
	o.OfferHash = OfferFingerprint(o.Origin, o.Destination, o.DepartureDate, o.Airline, o.DepartureTime, o.Price)
}
