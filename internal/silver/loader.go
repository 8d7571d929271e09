package silver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/sentinelops/weather-sentinel/internal/bronze"
	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// Loader turns landed bronze artifacts into silver observation rows. It is
// the sole writer of the observations table.
type Loader struct {
	landing bronze.Landing
	store   *Store
}

// NewLoader creates a Loader reading from landing and appending to store.
func NewLoader(landing bronze.Landing, store *Store) *Loader {
	return &Loader{landing: landing, store: store}
}

// Load reads the artifact, parses it into an Observation and appends it.
// Loading the same artifact again is a no-op; the returned bool reports
// whether a new row was written. Parse failures are surfaced, never
// swallowed.
func (l *Loader) Load(ctx context.Context, ref bronze.ArtifactRef) (weather.Observation, bool, error) {
	raw, err := l.landing.Read(ref)
	if err != nil {
		return weather.Observation{}, false, err
	}

	obs, err := ParseObservation(raw, ref)
	if err != nil {
		return weather.Observation{}, false, fmt.Errorf("parsing artifact %s: %w", ref.Key, err)
	}

	inserted, err := l.store.Insert(ctx, obs)
	if err != nil {
		return weather.Observation{}, false, err
	}
	if !inserted {
		log.Printf("INFO: artifact %s already loaded, skipping", ref.Key)
	}
	return obs, inserted, nil
}

// openWeatherPayload mirrors the subset of the OpenWeather current-weather
// response we load. Pointer fields distinguish absent values from zeroes.
type openWeatherPayload struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Dt   *int64 `json:"dt"`
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// ParseObservation maps a raw OpenWeather payload to the Observation shape.
// Missing upstream fields map to nil, never to zero values: the quality gate
// downstream distinguishes "absent" from "measured zero".
func ParseObservation(raw []byte, ref bronze.ArtifactRef) (weather.Observation, error) {
	var payload openWeatherPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return weather.Observation{}, err
	}

	obs := weather.Observation{
		ArtifactKey: ref.Key,
		Location: weather.Location{
			City:    payload.Name,
			Country: payload.Sys.Country,
		},
		TemperatureC:     payload.Main.Temp,
		FeelsLikeC:       payload.Main.FeelsLike,
		HumidityPct:      payload.Main.Humidity,
		PressureHpa:      payload.Main.Pressure,
		WindSpeedMS:      payload.Wind.Speed,
		WindDirectionDeg: payload.Wind.Deg,
	}

	if payload.Dt != nil {
		obs.ObservedAt = weather.Time(timeFromUnix(*payload.Dt))
	}
	if !ref.FetchedAt.IsZero() {
		obs.FetchedAt = weather.Time(ref.FetchedAt.UTC())
	}
	if len(payload.Weather) > 0 {
		obs.ConditionSummary = payload.Weather[0].Main
		obs.ConditionDetail = payload.Weather[0].Description
	}

	return obs, nil
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
