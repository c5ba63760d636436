// backend/providers/synthetic.go
package providers

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/gewnthar/faresight/backend/config"
	"github.com/gewnthar/faresight/backend/models"
)

// syntheticAirlines is the fixed roster synthetic offers draw from.
var syntheticAirlines = []string{
	"Air India", "IndiGo", "SpiceJet", "Vistara",
	"Emirates", "Lufthansa", "British Airways",
	"Singapore Airlines", "Qatar Airways", "Delta Air Lines",
}

// domesticAirports classifies routes with no price history: a pair with both
// endpoints in this set gets the domestic default price range.
var domesticAirports = map[string]bool{
	"DEL": true, "BOM": true, "BLR": true, "HYD": true,
	"CCU": true, "MAA": true, "GOI": true,
}

const (
	domesticPriceMin = 40.0
	domesticPriceMax = 250.0
	longHaulPriceMin = 250.0
	longHaulPriceMax = 1200.0

	// Average cruise speed used to derive a duration from historical route
	// distance.
	cruiseSpeedKmh = 800.0
)

// Synthetic is the last-resort fallback provider. It makes no network calls:
// offers are generated from historical per-route statistics, with a hard
// daily generation ceiling so synthetic rows can never dominate the dataset.
type Synthetic struct {
	maxDaily  int
	generated int

	statsFn    RouteStatsFunc
	statsCache map[string]*models.RouteStats

	rng *rand.Rand
}

func NewSynthetic(cfg config.SyntheticConfig, statsFn RouteStatsFunc) *Synthetic {
	return &Synthetic{
		maxDaily:   cfg.MaxDailyOffers,
		statsFn:    statsFn,
		statsCache: make(map[string]*models.RouteStats),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) IsAvailable() bool { return s.generated < s.maxDaily }

func (s *Synthetic) RemainingQuota() int { return QuotaUnlimited }

// FetchOffers generates 2-5 plausible offers for the route and date. Counts
// every generated row against the daily ceiling.
func (s *Synthetic) FetchOffers(_ context.Context, origin, destination string, date time.Time) ([]models.FlightOffer, error) {
	if s.generated >= s.maxDaily {
		log.Println("[synthetic] Daily generation cap reached. Skipping.")
		return nil, nil
	}

	stats := s.routeStats(origin, destination)

	count := 2 + s.rng.Intn(4)
	offers := make([]models.FlightOffer, 0, count)
	for i := 0; i < count && s.generated < s.maxDaily; i++ {
		offers = append(offers, s.generateOffer(origin, destination, date, stats))
		s.generated++
	}

	log.Printf("[synthetic] Generated %d offers for %s-%s on %s.", len(offers), origin, destination, date.Format("2006-01-02"))
	return offers, nil
}

// routeStats fetches (and caches for the run) all-provenance price history
// for the route. Routes with 5 or fewer samples fall back to the default
// range so a handful of outliers cannot anchor the generator.
func (s *Synthetic) routeStats(origin, destination string) *models.RouteStats {
	key := origin + "-" + destination
	if cached, ok := s.statsCache[key]; ok {
		return cached
	}

	stats, err := s.statsFn(origin, destination, "")
	if err != nil {
		log.Printf("[synthetic] Stats lookup failed for %s: %v", key, err)
		stats = nil
	}
	if stats == nil || stats.SampleCount <= 5 {
		stats = defaultRouteStats(origin, destination)
	}

	s.statsCache[key] = stats
	return stats
}

func defaultRouteStats(origin, destination string) *models.RouteStats {
	min, max := longHaulPriceMin, longHaulPriceMax
	if domesticAirports[origin] && domesticAirports[destination] {
		min, max = domesticPriceMin, domesticPriceMax
	}
	mean := (min + max) / 2
	return &models.RouteStats{
		Mean:   mean,
		StdDev: mean * 0.25,
		Min:    min,
		Max:    max,
	}
}

func (s *Synthetic) generateOffer(origin, destination string, date time.Time, stats *models.RouteStats) models.FlightOffer {
	price := sampleEstimatedPrice(s.rng, stats)

	airline := syntheticAirlines[s.rng.Intn(len(syntheticAirlines))]

	depHour := 5 + s.rng.Intn(19) // 05:00 - 23:00
	depMinute := []int{0, 15, 30, 45}[s.rng.Intn(4)]
	departureTime := time.Date(date.Year(), date.Month(), date.Day(), depHour, depMinute, 0, 0, date.Location())

	var flightHours float64
	if stats.AvgDistance != nil && *stats.AvgDistance > 0 {
		flightHours = *stats.AvgDistance / cruiseSpeedKmh
	} else {
		flightHours = 1.5 + s.rng.Float64()*10.5
	}
	durationMinutes := int(flightHours * 60)
	arrivalTime := departureTime.Add(time.Duration(durationMinutes) * time.Minute)

	stops := 0
	if s.rng.Float64() >= 0.6 {
		stops = 1
		if s.rng.Float64() >= 0.8 {
			stops = 2
		}
	}

	seats := 1 + s.rng.Intn(9)

	return models.FlightOffer{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: departureTime,
		Price:         price,
		Currency:      "EUR",
		Airline:       airline,
		DepartureTime: departureTime,
		ArrivalTime:   arrivalTime,
		Stops:         stops,
		Duration:      isoDuration(durationMinutes),
		DistanceKm:    stats.AvgDistance,
		BookableSeats: &seats,
		CabinClass:    "ECONOMY",
		FareBasis:     "SYNTHETIC",
		ProviderName:  s.Name(),
		ScrapedAt:     time.Now(),
	}
}
