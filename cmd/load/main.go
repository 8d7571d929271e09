// Command load runs the raw-to-structured stage once: it parses a landed
// artifact into an observation row and appends it to the silver store. By
// default it loads the latest artifact; -key loads a named one. Re-running
// over the same artifact is a no-op.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sentinelops/weather-sentinel/internal/bronze"
	"github.com/sentinelops/weather-sentinel/internal/config"
	"github.com/sentinelops/weather-sentinel/internal/silver"
)

func main() {
	key := flag.String("key", "", "artifact key to load (default: latest)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	landing := bronze.NewFSLanding(cfg.BronzeDir, cfg.BronzePrefix)

	store, err := silver.Open(cfg.SilverDBPath)
	if err != nil {
		log.Fatalf("failed to open silver store: %v", err)
	}
	defer store.Close()

	loader := silver.NewLoader(landing, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ref, err := resolveArtifact(landing, *key)
	if err != nil {
		log.Fatalf("failed to resolve artifact: %v", err)
	}

	obs, inserted, err := loader.Load(ctx, ref)
	if err != nil {
		log.Fatalf("failed to load %s: %v", ref.Key, err)
	}
	if inserted {
		log.Printf("INFO: loaded %s for %s", ref.Key, obs.Location.Key())
	} else {
		log.Printf("INFO: %s was already loaded, nothing to do", ref.Key)
	}
}

func resolveArtifact(landing *bronze.FSLanding, key string) (bronze.ArtifactRef, error) {
	if key == "" {
		return landing.Latest()
	}
	ref := bronze.ArtifactRef{Key: key}
	fetchedAt, err := bronze.ParseKeyTime(key)
	if err != nil {
		return bronze.ArtifactRef{}, err
	}
	ref.FetchedAt = fetchedAt
	return ref, nil
}
