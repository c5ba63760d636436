// backend/database/offer_store.go
package database

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gewnthar/faresight/backend/models"
)

// SaveOffers persists a batch of offers, silently skipping any row whose
// fingerprint already exists. The batch is atomic: a storage failure rolls
// every row back and the caller accounts the batch as fully skipped.
//
// A malformed offer (missing required field) rejects the whole batch with a
// validation error before any storage call is made.
func SaveOffers(offers []models.FlightOffer) (inserted, skipped int, err error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(offers) == 0 {
		return 0, 0, nil
	}

	for i := range offers {
		if err := offers[i].Validate(); err != nil {
			return 0, 0, fmt.Errorf("invalid offer in batch: %w", err)
		}
		if offers[i].OfferHash == "" {
			offers[i].ComputeFingerprint()
		}
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for offers: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT IGNORE INTO flight_offers (
			offer_hash, origin, destination, departure_date, return_date,
			price, currency, airline, departure_time, arrival_time,
			stops, duration, distance_km, number_of_bookable_seats,
			cabin_class, fare_basis, provider_name, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare offer insert statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range offers {
		var returnDate sql.NullTime
		if o.ReturnDate != nil {
			returnDate = sql.NullTime{Time: *o.ReturnDate, Valid: true}
		}
		var distance sql.NullFloat64
		if o.DistanceKm != nil {
			distance = sql.NullFloat64{Float64: *o.DistanceKm, Valid: true}
		}
		var seats sql.NullInt64
		if o.BookableSeats != nil {
			seats = sql.NullInt64{Int64: int64(*o.BookableSeats), Valid: true}
		}

		res, err := stmt.Exec(
			o.OfferHash, o.Origin, o.Destination, o.DepartureDate, returnDate,
			o.Price, o.Currency, o.Airline, o.DepartureTime, o.ArrivalTime,
			o.Stops, o.Duration, distance, seats,
			nullString(o.CabinClass), nullString(o.FareBasis), o.ProviderName, o.ScrapedAt,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert offer %s-%s (%s): %w", o.Origin, o.Destination, o.Airline, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected for offer insert: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit offer batch: %w", err)
	}

	skipped = len(offers) - inserted
	return inserted, skipped, nil
}

// BackfillMissingFingerprints recomputes offer_hash for legacy rows inserted
// before the fingerprint column became mandatory. Rows whose recomputed hash
// collides with an existing one are left untouched and reported.
func BackfillMissingFingerprints() (updated int, err error) {
	if DB == nil {
		return 0, fmt.Errorf("database connection is not initialized")
	}

	rows, err := DB.Query(`
		SELECT id, origin, destination, departure_date, airline, departure_time, price
		FROM flight_offers
		WHERE offer_hash = '' OR offer_hash IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query offers without fingerprints: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id   int64
		hash string
	}
	var work []pending
	for rows.Next() {
		var o models.FlightOffer
		if err := rows.Scan(&o.ID, &o.Origin, &o.Destination, &o.DepartureDate, &o.Airline, &o.DepartureTime, &o.Price); err != nil {
			log.Printf("ERROR Database: Failed to scan offer row for backfill: %v", err)
			continue
		}
		o.ComputeFingerprint()
		work = append(work, pending{id: o.ID, hash: o.OfferHash})
	}
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating backfill rows: %w", err)
	}

	for _, w := range work {
		_, err := DB.Exec(`UPDATE flight_offers SET offer_hash = ? WHERE id = ?`, w.hash, w.id)
		if err != nil {
			log.Printf("WARN Database: Could not backfill fingerprint for offer %d (likely duplicate): %v", w.id, err)
			continue
		}
		updated++
	}

	log.Printf("Database: Backfilled fingerprints for %d of %d candidate offers.\n", updated, len(work))
	return updated, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
