// backend/models/fingerprint.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// fingerprintTimeLayout is the canonical ISO-8601 text form used inside the
// fingerprint preimage. It must never change: the unique constraint on
// flight_offers.offer_hash relies on historical and future rows hashing the
// same logical observation to the same digest.
const fingerprintTimeLayout = "2006-01-02T15:04:05"

// OfferFingerprint produces the stable dedup fingerprint for a price
// observation. Two observations with identical (origin, destination,
// departure date, uppercased airline, departure time, price rounded to two
// decimals) collapse to the same digest regardless of which provider or run
// produced them.
func OfferFingerprint(origin, destination string, departureDate time.Time, airline string, departureTime time.Time, price float64) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%.2f",
		origin,
		destination,
		departureDate.Format(fingerprintTimeLayout),
		strings.ToUpper(airline),
		departureTime.Format(fingerprintTimeLayout),
		price,
	)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
