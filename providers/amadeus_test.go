// backend/providers/amadeus_test.go
package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/faresight/backend/config"
)

const amadeusOffersPayload = `{
  "data": [
    {
      "price": {"total": "215.40", "currency": "EUR"},
      "itineraries": [
        {
          "duration": "PT8H30M",
          "segments": [
            {
              "departure": {"iataCode": "del", "at": "2026-09-12T09:40:00"},
              "arrival": {"iataCode": "DXB", "at": "2026-09-12T12:10:00"},
              "carrierCode": "EK"
            },
            {
              "departure": {"iataCode": "DXB", "at": "2026-09-12T14:00:00"},
              "arrival": {"iataCode": "lhr", "at": "2026-09-12T18:10:00"},
              "carrierCode": "EK"
            }
          ]
        },
        {
          "duration": "PT9H0M",
          "segments": [
            {
              "departure": {"iataCode": "LHR", "at": "2026-10-13T10:00:00"},
              "arrival": {"iataCode": "DEL", "at": "2026-10-13T22:30:00"},
              "carrierCode": "EK"
            }
          ]
        }
      ],
      "numberOfBookableSeats": 4
    },
    {
      "price": {"total": "not-a-price", "currency": "EUR"},
      "itineraries": [
        {
          "duration": "PT2H0M",
          "segments": [
            {
              "departure": {"iataCode": "DEL", "at": "2026-09-12T06:00:00"},
              "arrival": {"iataCode": "LHR", "at": "2026-09-12T08:00:00"},
              "carrierCode": "BA"
            }
          ]
        }
      ]
    }
  ],
  "dictionaries": {"carriers": {"EK": "EMIRATES", "BA": "BRITISH AIRWAYS"}}
}`

// newAmadeusServer stands in for both the token and search endpoints and
// counts token requests.
func newAmadeusServer(t *testing.T, tokenCalls *int, searchStatus int, searchBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			*tokenCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
			assert.Equal(t, "test-key", r.FormValue("client_id"))
			fmt.Fprint(w, `{"access_token":"tok-1","expires_in":1799}`)
		case "/v2/shopping/flight-offers":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(searchStatus)
			fmt.Fprint(w, searchBody)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))
}

func newTestAmadeus(t *testing.T, baseURL string) *Amadeus {
	t.Helper()
	t.Setenv("AMADEUS_API_KEY", "test-key")
	t.Setenv("AMADEUS_API_SECRET", "test-secret")
	return NewAmadeus(config.AmadeusConfig{BaseURL: baseURL, NominalQuota: 2000})
}

func TestAmadeusFetchOffersNormalization(t *testing.T) {
	var tokenCalls int
	srv := newAmadeusServer(t, &tokenCalls, http.StatusOK, amadeusOffersPayload)
	defer srv.Close()

	a := newTestAmadeus(t, srv.URL)
	date := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

	offers, err := a.FetchOffers(context.Background(), "DEL", "LHR", date)
	require.NoError(t, err)

	// The second offer has an unparseable price and is skipped.
	require.Len(t, offers, 1)
	o := offers[0]
	assert.Equal(t, "DEL", o.Origin)
	assert.Equal(t, "LHR", o.Destination)
	assert.Equal(t, 215.40, o.Price)
	assert.Equal(t, "EUR", o.Currency)
	assert.Equal(t, "EMIRATES", o.Airline, "carrier code resolved via the dictionary")
	assert.Equal(t, 1, o.Stops, "two segments means one stop")
	assert.Equal(t, "PT8H30M", o.Duration)
	assert.Equal(t, "ECONOMY", o.CabinClass)
	assert.Equal(t, "amadeus", o.ProviderName)
	require.NotNil(t, o.BookableSeats)
	assert.Equal(t, 4, *o.BookableSeats)
	assert.Equal(t, time.Date(2026, 9, 12, 9, 40, 0, 0, time.UTC), o.DepartureTime)
	assert.Equal(t, time.Date(2026, 9, 12, 18, 10, 0, 0, time.UTC), o.ArrivalTime)
	require.NotNil(t, o.ReturnDate)
	assert.Equal(t, time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC), *o.ReturnDate)
	assert.NoError(t, o.Validate())
}

func TestAmadeusTokenCachedAcrossCalls(t *testing.T) {
	var tokenCalls int
	srv := newAmadeusServer(t, &tokenCalls, http.StatusOK, amadeusOffersPayload)
	defer srv.Close()

	a := newTestAmadeus(t, srv.URL)
	date := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := a.FetchOffers(context.Background(), "DEL", "LHR", date)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls, "token must be fetched once and reused until near expiry")
}

func TestAmadeusRateLimited(t *testing.T) {
	var tokenCalls int
	srv := newAmadeusServer(t, &tokenCalls, http.StatusTooManyRequests, `{}`)
	defer srv.Close()

	a := newTestAmadeus(t, srv.URL)

	_, err := a.FetchOffers(context.Background(), "DEL", "LHR", time.Now())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, a.consecutiveRateLimits)
	assert.True(t, a.IsAvailable())

	for i := 0; i < amadeusMaxConsecutiveRateLimits-1; i++ {
		_, err = a.FetchOffers(context.Background(), "DEL", "LHR", time.Now())
		assert.ErrorIs(t, err, ErrRateLimited)
	}
	assert.False(t, a.IsAvailable(), "sustained rate limiting must mark the provider unavailable")
	assert.Equal(t, 0, a.RemainingQuota())
}

func TestAmadeusUnauthorizedClearsToken(t *testing.T) {
	var tokenCalls int
	srv := newAmadeusServer(t, &tokenCalls, http.StatusUnauthorized, `{}`)
	defer srv.Close()

	a := newTestAmadeus(t, srv.URL)

	_, err := a.FetchOffers(context.Background(), "DEL", "LHR", time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, a.accessToken, "a 401 must invalidate the cached token")

	// The next call fetches a fresh token rather than reusing the stale one.
	_, err = a.FetchOffers(context.Background(), "DEL", "LHR", time.Now())
	require.Error(t, err)
	assert.Equal(t, 2, tokenCalls)
}

func TestAmadeusUnavailableWithoutCredentials(t *testing.T) {
	t.Setenv("AMADEUS_API_KEY", "")
	t.Setenv("AMADEUS_API_SECRET", "")
	a := NewAmadeus(config.AmadeusConfig{BaseURL: "http://localhost"})
	assert.False(t, a.IsAvailable())
}

func TestAmadeusDestinations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			fmt.Fprint(w, `{"access_token":"tok-1","expires_in":1799}`)
		case "/v1/airport/direct-destinations":
			assert.Equal(t, "DEL", r.URL.Query().Get("departureAirportCode"))
			assert.Equal(t, "15", r.URL.Query().Get("max"))
			fmt.Fprint(w, `{"data":[{"iataCode":"bom"},{"iataCode":"DXB"},{"iataCode":""}]}`)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := newTestAmadeus(t, srv.URL)

	codes, err := a.Destinations(context.Background(), "DEL", 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"BOM", "DXB"}, codes)
}

func TestParseAmadeusTime(t *testing.T) {
	got, err := parseAmadeusTime("2026-09-12T09:40:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 12, 9, 40, 0, 0, time.UTC), got)

	_, err = parseAmadeusTime("")
	assert.Error(t, err)

	_, err = parseAmadeusTime("garbage")
	assert.Error(t, err)
}
