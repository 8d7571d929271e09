package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FetchInterval != 15*time.Minute {
		t.Errorf("expected default interval 15m, got %v", cfg.FetchInterval)
	}
	if cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("expected default timeout 20s, got %v", cfg.HTTPTimeout)
	}
	if cfg.BronzePrefix != "bronze/weather" {
		t.Errorf("expected default prefix bronze/weather, got %q", cfg.BronzePrefix)
	}
	if cfg.Units != "metric" {
		t.Errorf("expected default units metric, got %q", cfg.Units)
	}
	if len(cfg.Locations) != 1 {
		t.Fatalf("expected one default location, got %d", len(cfg.Locations))
	}
}

func TestLoadParallelLocationLists(t *testing.T) {
	t.Setenv("WEATHER_LOCATION_CITY", "Abidjan, Paris")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "CI, FR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(cfg.Locations))
	}
	if cfg.Locations[1].City != "Paris" || cfg.Locations[1].Country != "FR" {
		t.Errorf("expected Paris/FR, got %+v", cfg.Locations[1])
	}
}

func TestLoadRejectsMismatchedLocationLists(t *testing.T) {
	t.Setenv("WEATHER_LOCATION_CITY", "Abidjan,Paris")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "CI")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for mismatched city/country lists")
	}
}

func TestLoadRejectsInvalidInterval(t *testing.T) {
	t.Setenv("FETCH_INTERVAL", "often")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid FETCH_INTERVAL")
	}
}
