// Package pipeline wires the medallion stages together: fetch, land, load.
// Each stage consumes only committed output of its predecessor; nothing is
// landed on fetch failure and nothing is loaded from an unpublished
// artifact.
package pipeline

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/sentinelops/weather-sentinel/internal/bronze"
	"github.com/sentinelops/weather-sentinel/internal/silver"
	"github.com/sentinelops/weather-sentinel/internal/source"
	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// Pipeline runs the ingest and load stages for one location at a time.
type Pipeline struct {
	source  *source.Client
	landing bronze.Landing
	loader  *silver.Loader
}

// New creates a Pipeline.
func New(src *source.Client, landing bronze.Landing, loader *silver.Loader) *Pipeline {
	return &Pipeline{source: src, landing: landing, loader: loader}
}

// RunIngest fetches one observation for loc and lands the verbatim payload.
// The landing writer is never invoked when the fetch failed, so a terminal
// fetch error leaves zero side effects.
func (p *Pipeline) RunIngest(ctx context.Context, loc weather.Location) (bronze.ArtifactRef, error) {
	runID := uuid.NewString()
	log.Printf("INFO: run %s: fetching %s", runID, loc.Key())

	res, err := p.source.Fetch(ctx, loc)
	if err != nil {
		log.Printf("ERROR: run %s: fetch failed for %s: %v", runID, loc.Key(), err)
		return bronze.ArtifactRef{}, err
	}

	ref, err := p.landing.Land(res.Payload, res.FetchedAt, loc)
	if err != nil {
		log.Printf("ERROR: run %s: landing failed for %s: %v", runID, loc.Key(), err)
		return bronze.ArtifactRef{}, err
	}

	log.Printf("INFO: run %s: landed %s (%d bytes)", runID, ref.Key, len(res.Payload))
	return ref, nil
}

// RunLoad parses the landed artifact into an observation row and appends it
// to the silver store. Safe to re-run for the same artifact.
func (p *Pipeline) RunLoad(ctx context.Context, ref bronze.ArtifactRef) (weather.Observation, error) {
	obs, inserted, err := p.loader.Load(ctx, ref)
	if err != nil {
		log.Printf("ERROR: load failed for %s: %v", ref.Key, err)
		return weather.Observation{}, err
	}
	if inserted {
		log.Printf("INFO: loaded %s into silver", ref.Key)
	}
	return obs, nil
}

// Run executes the full chain for loc: fetch, land, load.
func (p *Pipeline) Run(ctx context.Context, loc weather.Location) error {
	ref, err := p.RunIngest(ctx, loc)
	if err != nil {
		return err
	}
	_, err = p.RunLoad(ctx, ref)
	return err
}
