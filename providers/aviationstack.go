// backend/providers/aviationstack.go
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gewnthar/faresight/backend/config"
	"github.com/gewnthar/faresight/backend/models"
	"github.com/gewnthar/faresight/backend/utils"
)

// AviationStack is the secondary provider. Its free tier exposes real flight
// schedules (routes, airlines, times) but no pricing, so each returned
// flight is enriched with a price sampled from the route's observed amadeus
// history.
//
// The monthly call counter lives in process memory only and resets on
// restart; the free-tier budget is small enough that this known limitation
// is tolerated rather than persisted.
type AviationStack struct {
	baseURL      string
	apiKey       string
	monthlyLimit int
	callsMade    int
	client       *http.Client

	statsFn RouteStatsFunc
	// Per-route stats cache, scoped to the lifetime of the run.
	statsCache map[string]*models.RouteStats

	rng *rand.Rand
}

// NewAviationStack builds the secondary provider. The API key comes from the
// AVIATIONSTACK_API_KEY environment variable; statsFn supplies the
// historical price statistics used for estimation.
func NewAviationStack(cfg config.AviationStackConfig, statsFn RouteStatsFunc) *AviationStack {
	return &AviationStack{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       os.Getenv("AVIATIONSTACK_API_KEY"),
		monthlyLimit: cfg.MonthlyLimit,
		client:       &http.Client{Timeout: 15 * time.Second},
		statsFn:      statsFn,
		statsCache:   make(map[string]*models.RouteStats),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (av *AviationStack) Name() string { return "aviationstack" }

func (av *AviationStack) IsAvailable() bool {
	if av.apiKey == "" {
		return false
	}
	if av.callsMade >= av.monthlyLimit {
		log.Printf("[aviationstack] Monthly limit reached (%d/%d).", av.callsMade, av.monthlyLimit)
		return false
	}
	return true
}

func (av *AviationStack) RemainingQuota() int {
	remaining := av.monthlyLimit - av.callsMade
	if remaining < 0 {
		return 0
	}
	return remaining
}

type aviationStackFlight struct {
	Departure struct {
		Iata      string `json:"iata"`
		Scheduled string `json:"scheduled"`
		Estimated string `json:"estimated"`
	} `json:"departure"`
	Arrival struct {
		Iata      string `json:"iata"`
		Scheduled string `json:"scheduled"`
		Estimated string `json:"estimated"`
	} `json:"arrival"`
	Airline struct {
		Name string `json:"name"`
	} `json:"airline"`
}

type aviationStackResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Data []aviationStackFlight `json:"data"`
}

// FetchOffers queries the schedules endpoint for one route and enriches the
// real flights with estimated prices. Every completed (2xx) request counts
// one call against the monthly ceiling, whether or not flights come back;
// rate-limited attempts do not.
func (av *AviationStack) FetchOffers(ctx context.Context, origin, destination string, date time.Time) ([]models.FlightOffer, error) {
	if !av.IsAvailable() {
		return nil, nil
	}

	params := url.Values{}
	params.Set("access_key", av.apiKey)
	params.Set("dep_iata", origin)
	params.Set("arr_iata", destination)
	params.Set("flight_status", "scheduled")
	params.Set("limit", "20")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		av.baseURL+"/flights?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build flights request: %w", err)
	}

	resp, err := av.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aviationstack unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aviationstack returned status %d", resp.StatusCode)
	}

	// Only completed requests count; a rate-limited or failed call is not
	// billed against the free tier.
	av.callsMade++

	var parsed aviationStackResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode flights response: %w", err)
	}
	if parsed.Error != nil {
		// The free tier reports over-quota and auth failures inside a 200
		// body rather than via status codes.
		return nil, fmt.Errorf("aviationstack API error %s: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		log.Printf("[aviationstack] No scheduled flights for %s-%s.", origin, destination)
		return nil, nil
	}

	stats := av.routeStats(origin, destination)

	var offers []models.FlightOffer
	now := time.Now()
	for _, flight := range parsed.Data {
		offer, ok := av.normalizeFlight(&flight, origin, destination, stats, now)
		if ok {
			offers = append(offers, offer)
		}
	}

	log.Printf("[aviationstack] Found %d flights for %s-%s.", len(offers), origin, destination)
	return offers, nil
}

// routeStats fetches (and caches for the run) the amadeus-sourced price
// history for a route. Falls back to broad defaults when no history exists
// or the lookup fails.
func (av *AviationStack) routeStats(origin, destination string) *models.RouteStats {
	key := origin + "-" + destination
	if cached, ok := av.statsCache[key]; ok {
		return cached
	}

	stats, err := av.statsFn(origin, destination, "amadeus")
	if err != nil {
		log.Printf("[aviationstack] Stats lookup failed for %s: %v", key, err)
		stats = nil
	}
	if stats == nil {
		stats = &models.RouteStats{Mean: 300.0, StdDev: 75.0, Min: 50.0, Max: 1200.0}
	}

	av.statsCache[key] = stats
	return stats
}

func (av *AviationStack) normalizeFlight(flight *aviationStackFlight, origin, destination string, stats *models.RouteStats, now time.Time) (models.FlightOffer, bool) {
	depStr := flight.Departure.Scheduled
	if depStr == "" {
		depStr = flight.Departure.Estimated
	}
	arrStr := flight.Arrival.Scheduled
	if arrStr == "" {
		arrStr = flight.Arrival.Estimated
	}
	if depStr == "" || arrStr == "" {
		return models.FlightOffer{}, false
	}

	departureTime, err := parseScheduleTime(depStr)
	if err != nil {
		log.Printf("[aviationstack] Bad departure timestamp %q: %v", depStr, err)
		return models.FlightOffer{}, false
	}
	arrivalTime, err := parseScheduleTime(arrStr)
	if err != nil {
		log.Printf("[aviationstack] Bad arrival timestamp %q: %v", arrStr, err)
		return models.FlightOffer{}, false
	}

	durationMinutes := int(arrivalTime.Sub(departureTime).Minutes())
	if durationMinutes <= 0 {
		return models.FlightOffer{}, false
	}

	airline := flight.Airline.Name
	if airline == "" {
		airline = "Unknown Airline"
	}

	if code := utils.NormalizeAirportCode(flight.Departure.Iata); code != "" {
		origin = code
	}
	if code := utils.NormalizeAirportCode(flight.Arrival.Iata); code != "" {
		destination = code
	}

	return models.FlightOffer{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: departureTime,
		Price:         sampleEstimatedPrice(av.rng, stats),
		Currency:      "EUR",
		Airline:       airline,
		DepartureTime: departureTime,
		ArrivalTime:   arrivalTime,
		Stops:         0, // free tier exposes no layover information
		Duration:      isoDuration(durationMinutes),
		DistanceKm:    stats.AvgDistance,
		CabinClass:    "ECONOMY",
		ProviderName:  av.Name(),
		ScrapedAt:     now,
	}, true
}

// sampleEstimatedPrice draws a Gaussian around the historical mean, clamped
// to [0.8×min, 1.2×max] of the observed range and floored at €10.
func sampleEstimatedPrice(rng *rand.Rand, stats *models.RouteStats) float64 {
	price := rng.NormFloat64()*stats.StdDev + stats.Mean
	price = math.Max(stats.Min*0.8, math.Min(stats.Max*1.2, price))
	price = math.Max(10.0, price)
	return math.Round(price*100) / 100
}

func isoDuration(minutes int) string {
	return fmt.Sprintf("PT%dH%dM", minutes/60, minutes%60)
}

// parseScheduleTime handles AviationStack's zoned timestamps
// ("2026-03-15T09:40:00+00:00") as well as zone-less variants.
func parseScheduleTime(s string) (time.Time, error) {
	s = strings.Replace(s, "Z", "+00:00", 1)
	if t, err := time.Parse("2006-01-02T15:04:05-07:00", s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
