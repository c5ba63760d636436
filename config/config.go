// backend/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// CollectorConfig carries every knob of the quota scheduler, the rotation
// loop and the backoff retrier. None of the algorithms hardcode these beyond
// the defaults applied in LoadConfig.
type CollectorConfig struct {
	DailyApiQuota      int     `yaml:"daily_api_quota"`
	RunsPerDay         int     `yaml:"runs_per_day"`
	ApiBufferPercent   float64 `yaml:"api_buffer_percent"`
	MaxRoutesPerRun    int     `yaml:"max_routes_per_run"`
	MaxOffersPerRun    int     `yaml:"max_offers_per_run"`
	DateOffsets        []int   `yaml:"date_offsets"` // days ahead probed per route
	MaxRetries         int     `yaml:"max_retries"`
	BaseBackoffSeconds float64 `yaml:"base_backoff_seconds"`
	PacingSeconds      float64 `yaml:"pacing_seconds"`
}

type AmadeusConfig struct {
	BaseURL      string `yaml:"base_url"`
	NominalQuota int    `yaml:"nominal_quota"`
}

type AviationStackConfig struct {
	BaseURL      string `yaml:"base_url"`
	MonthlyLimit int    `yaml:"monthly_limit"`
}

type SyntheticConfig struct {
	MaxDailyOffers int `yaml:"max_daily_offers"`
}

type DiscoveryConfig struct {
	Hubs                  []string `yaml:"hubs"`
	MaxDestinationsPerHub int      `yaml:"max_destinations_per_hub"`
}

type SeedConfig struct {
	RoutesCSV string `yaml:"routes_csv"`
}

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Collector     CollectorConfig     `yaml:"collector"`
	Amadeus       AmadeusConfig       `yaml:"amadeus"`
	AviationStack AviationStackConfig `yaml:"aviationstack"`
	Synthetic     SyntheticConfig     `yaml:"synthetic"`
	Discovery     DiscoveryConfig     `yaml:"discovery"`
	Seed          SeedConfig          `yaml:"seed"`
}

var AppConfig Config

// LoadConfig reads the YAML configuration file, applies defaults for any
// collector knob left unset, and layers secrets from the environment.
// Provider credentials (AMADEUS_API_KEY / AMADEUS_API_SECRET /
// AVIATIONSTACK_API_KEY) are read from the environment by the providers
// themselves; DB_PASSWORD overrides the file value here.
func LoadConfig(configPath string) error {
	file, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(file, &AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&AppConfig)

	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		AppConfig.Database.Password = pw
	}

	return nil
}

func applyDefaults(cfg *Config) {
	c := &cfg.Collector
	if c.DailyApiQuota <= 0 {
		c.DailyApiQuota = 2000
	}
	if c.RunsPerDay <= 0 {
		c.RunsPerDay = 2
	}
	if c.ApiBufferPercent <= 0 {
		c.ApiBufferPercent = 0.10
	}
	if c.MaxRoutesPerRun <= 0 {
		c.MaxRoutesPerRun = 50
	}
	if c.MaxOffersPerRun <= 0 {
		c.MaxOffersPerRun = 50000
	}
	if len(c.DateOffsets) == 0 {
		c.DateOffsets = []int{14, 45}
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoffSeconds <= 0 {
		c.BaseBackoffSeconds = 2.0
	}
	if c.PacingSeconds <= 0 {
		c.PacingSeconds = 1.0
	}

	if cfg.Amadeus.BaseURL == "" {
		cfg.Amadeus.BaseURL = "https://test.api.amadeus.com"
	}
	if cfg.Amadeus.NominalQuota <= 0 {
		cfg.Amadeus.NominalQuota = 2000
	}
	if cfg.AviationStack.BaseURL == "" {
		// Free tier is HTTP only.
		cfg.AviationStack.BaseURL = "http://api.aviationstack.com/v1"
	}
	if cfg.AviationStack.MonthlyLimit <= 0 {
		cfg.AviationStack.MonthlyLimit = 100
	}
	if cfg.Synthetic.MaxDailyOffers <= 0 {
		cfg.Synthetic.MaxDailyOffers = 200
	}
	if cfg.Discovery.MaxDestinationsPerHub <= 0 {
		cfg.Discovery.MaxDestinationsPerHub = 15
	}
	if cfg.Seed.RoutesCSV == "" {
		cfg.Seed.RoutesCSV = "catalog/routes_seed.csv"
	}
}
