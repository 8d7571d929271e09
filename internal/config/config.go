package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// AppConfig is the full configuration surface, built once at process start
// and passed down by value. Components never read the environment
// themselves.
type AppConfig struct {
	OpenWeatherAPIKey string
	Units             string

	// Locations to ingest, one pipeline run each per trigger.
	Locations []weather.Location

	// Bronze landing zone.
	BronzeDir    string
	BronzePrefix string

	// Silver database file.
	SilverDBPath string

	// FetchInterval controls how often the scheduler triggers a run.
	FetchInterval time.Duration

	// HTTPTimeout bounds each outbound request to the weather API.
	HTTPTimeout time.Duration

	Port string
}

// Load reads configuration from the environment with sensible defaults.
// The API key is not required here: read-only entry points (the load stage,
// the API service without a scheduler) run without one, and the source
// client rejects fetches itself when the key is missing.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.Units = getenvDefault("OPENWEATHER_UNITS", "metric")

	cfg.BronzeDir = getenvDefault("BRONZE_DIR", "./data")
	cfg.BronzePrefix = getenvDefault("BRONZE_PREFIX", "bronze/weather")
	cfg.SilverDBPath = getenvDefault("SILVER_DB_PATH", "./data/silver.db")

	intervalStr := getenvDefault("FETCH_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "20s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")

	locs, err := loadLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadLocations parses the parallel comma-separated city/country lists.
func loadLocations() ([]weather.Location, error) {
	city := getenvDefault("WEATHER_LOCATION_CITY", "Abidjan")
	country := getenvDefault("WEATHER_LOCATION_COUNTRY", "CI")

	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}

	var locs []weather.Location
	for i := range cities {
		locs = append(locs, weather.Location{
			City:    strings.TrimSpace(cities[i]),
			Country: strings.TrimSpace(countries[i]),
		})
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
