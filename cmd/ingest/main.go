// Command ingest runs the ingest-to-raw stage once: fetch one observation
// per configured location and land the verbatim payload. Exits non-zero if
// any location fails terminally; nothing partial is left behind.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sentinelops/weather-sentinel/internal/bronze"
	"github.com/sentinelops/weather-sentinel/internal/config"
	"github.com/sentinelops/weather-sentinel/internal/source"
	"github.com/sentinelops/weather-sentinel/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.OpenWeatherAPIKey == "" {
		log.Fatal("OPENWEATHER_API_KEY is required for ingestion")
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	src := source.New(httpClient, source.Config{
		APIKey: cfg.OpenWeatherAPIKey,
		Units:  cfg.Units,
	})
	landing := bronze.NewFSLanding(cfg.BronzeDir, cfg.BronzePrefix)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed := false
	for _, loc := range cfg.Locations {
		if err := ingestOne(ctx, src, landing, loc); err != nil {
			log.Printf("ERROR: ingest failed for %s: %v", loc.Key(), err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func ingestOne(ctx context.Context, src *source.Client, landing bronze.Landing, loc weather.Location) error {
	res, err := src.Fetch(ctx, loc)
	if err != nil {
		return err
	}
	ref, err := landing.Land(res.Payload, res.FetchedAt, loc)
	if err != nil {
		return err
	}
	log.Printf("INFO: landed %s (%d bytes)", ref.Key, len(res.Payload))
	return nil
}
