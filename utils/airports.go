// backend/utils/airports.go
package utils

import "strings"

// NormalizeAirportCode trims and uppercases an IATA airport code as stored
// in the route catalog and on offers. Codes are otherwise treated as opaque;
// business validity is the request-validation layer's job, not this core's.
func NormalizeAirportCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
