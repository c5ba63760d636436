// backend/providers/amadeus.go
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gewnthar/faresight/backend/config"
	"github.com/gewnthar/faresight/backend/models"
	"github.com/gewnthar/faresight/backend/utils"
)

// Amadeus is the primary provider. It is the only source of observed
// (non-estimated) prices, via the Flight Offers Search API.
type Amadeus struct {
	baseURL      string
	apiKey       string
	apiSecret    string
	nominalQuota int
	client       *http.Client

	// OAuth2 client-credentials token, cached for the run and refreshed 60
	// seconds before expiry. A 401 on search clears it for the next call.
	accessToken string
	tokenExpiry time.Time

	// Amadeus does not expose remaining quota via its API, so availability
	// is inferred from consecutive rate-limit exhaustions.
	consecutiveRateLimits int
}

const amadeusMaxConsecutiveRateLimits = 5

// NewAmadeus builds the primary provider. Credentials come from the
// AMADEUS_API_KEY / AMADEUS_API_SECRET environment variables.
func NewAmadeus(cfg config.AmadeusConfig) *Amadeus {
	return &Amadeus{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       os.Getenv("AMADEUS_API_KEY"),
		apiSecret:    os.Getenv("AMADEUS_API_SECRET"),
		nominalQuota: cfg.NominalQuota,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Amadeus) Name() string { return "amadeus" }

func (a *Amadeus) IsAvailable() bool {
	if a.apiKey == "" || a.apiSecret == "" {
		return false
	}
	if a.consecutiveRateLimits >= amadeusMaxConsecutiveRateLimits {
		log.Printf("[amadeus] Quota likely exhausted (%d consecutive rate limits).", a.consecutiveRateLimits)
		return false
	}
	return true
}

func (a *Amadeus) RemainingQuota() int {
	if a.consecutiveRateLimits >= amadeusMaxConsecutiveRateLimits {
		return 0
	}
	return a.nominalQuota
}

type amadeusTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid bearer token, fetching a fresh one when the cached
// token is missing or within 60 seconds of expiry.
func (a *Amadeus) token(ctx context.Context) (string, error) {
	if a.accessToken != "" && time.Now().Before(a.tokenExpiry.Add(-60*time.Second)) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.apiKey)
	form.Set("client_secret", a.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok amadeusTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = 1799
	}

	a.accessToken = tok.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return a.accessToken, nil
}

type amadeusSegment struct {
	Departure struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
	CarrierCode string `json:"carrierCode"`
}

type amadeusOffersResponse struct {
	Data []struct {
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
		Itineraries []struct {
			Duration string           `json:"duration"`
			Segments []amadeusSegment `json:"segments"`
		} `json:"itineraries"`
		NumberOfBookableSeats *int `json:"numberOfBookableSeats"`
	} `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

// FetchOffers queries the priced-search endpoint for one route and date.
// A 429 maps to ErrRateLimited so the retrier can back off; a 401 drops the
// cached token before failing; any other non-2xx aborts this attempt.
func (a *Amadeus) FetchOffers(ctx context.Context, origin, destination string, date time.Time) ([]models.FlightOffer, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("amadeus authentication failed: %w", err)
	}

	params := url.Values{}
	params.Set("originLocationCode", origin)
	params.Set("destinationLocationCode", destination)
	params.Set("departureDate", date.Format("2006-01-02"))
	params.Set("adults", "1")
	params.Set("max", "50")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v2/shopping/flight-offers?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.amadeus+json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amadeus search unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		a.consecutiveRateLimits++
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		// Force a token refresh on the next attempt.
		a.accessToken = ""
		a.tokenExpiry = time.Time{}
		return nil, fmt.Errorf("amadeus invalidated the cached token (status 401)")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("amadeus search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	var parsed amadeusOffersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	a.consecutiveRateLimits = 0
	return a.normalizeOffers(&parsed), nil
}

// normalizeOffers flattens the nested Amadeus payload into FlightOffer rows.
// A structurally broken single offer is skipped rather than failing the
// whole response.
func (a *Amadeus) normalizeOffers(resp *amadeusOffersResponse) []models.FlightOffer {
	var offers []models.FlightOffer
	now := time.Now()

	for _, item := range resp.Data {
		if len(item.Itineraries) == 0 {
			continue
		}
		outbound := item.Itineraries[0]
		if len(outbound.Segments) == 0 {
			continue
		}

		price, err := strconv.ParseFloat(item.Price.Total, 64)
		if err != nil || price <= 0 {
			log.Printf("[amadeus] Skipping offer with unparseable price %q.", item.Price.Total)
			continue
		}

		first := outbound.Segments[0]
		last := outbound.Segments[len(outbound.Segments)-1]

		departureTime, err := parseAmadeusTime(first.Departure.At)
		if err != nil {
			log.Printf("[amadeus] Skipping offer with bad departure time %q: %v", first.Departure.At, err)
			continue
		}
		arrivalTime, err := parseAmadeusTime(last.Arrival.At)
		if err != nil {
			log.Printf("[amadeus] Skipping offer with bad arrival time %q: %v", last.Arrival.At, err)
			continue
		}

		airline := first.CarrierCode
		if name, ok := resp.Dictionaries.Carriers[airline]; ok && name != "" {
			airline = name
		}

		// Return leg: if a second itinerary exists, its first departure is
		// the return date.
		var returnDate *time.Time
		if len(item.Itineraries) > 1 && len(item.Itineraries[1].Segments) > 0 {
			if t, err := parseAmadeusTime(item.Itineraries[1].Segments[0].Departure.At); err == nil {
				returnDate = &t
			}
		}

		offers = append(offers, models.FlightOffer{
			Origin:        utils.NormalizeAirportCode(first.Departure.IataCode),
			Destination:   utils.NormalizeAirportCode(last.Arrival.IataCode),
			DepartureDate: departureTime,
			ReturnDate:    returnDate,
			Price:         price,
			Currency:      item.Price.Currency,
			Airline:       airline,
			DepartureTime: departureTime,
			ArrivalTime:   arrivalTime,
			Stops:         len(outbound.Segments) - 1,
			Duration:      outbound.Duration,
			BookableSeats: item.NumberOfBookableSeats,
			CabinClass:    "ECONOMY",
			ProviderName:  a.Name(),
			ScrapedAt:     now,
		})
	}

	return offers
}

type amadeusDestinationsResponse struct {
	Data []struct {
		IataCode string `json:"iataCode"`
	} `json:"data"`
}

// Destinations lists direct destinations served from a hub airport, used by
// route discovery to grow the catalog.
func (a *Amadeus) Destinations(ctx context.Context, hub string, max int) ([]string, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("amadeus authentication failed: %w", err)
	}

	params := url.Values{}
	params.Set("departureAirportCode", hub)
	params.Set("max", strconv.Itoa(max))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v1/airport/direct-destinations?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build destinations request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amadeus destinations unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		a.consecutiveRateLimits++
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amadeus destinations returned status %d", resp.StatusCode)
	}

	var parsed amadeusDestinationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode destinations response: %w", err)
	}

	var codes []string
	for _, d := range parsed.Data {
		if code := utils.NormalizeAirportCode(d.IataCode); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// parseAmadeusTime handles the zone-less local timestamps Amadeus emits
// ("2026-03-15T09:40:00").
func parseAmadeusTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
