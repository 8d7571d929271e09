package weather

import (
	"strings"
	"time"
)

// Location represents a logical place for which we ingest observations.
// City/Country must be provided.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for indexing this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Slug returns a lowercase, filesystem-safe form of the location,
// used in landing artifact keys.
func (l Location) Slug() string {
	s := l.City + "-" + l.Country
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	return s
}

// Observation is one structured weather measurement, as loaded into the
// silver table. Nullable fields are pointers: absence means the upstream
// payload did not carry the value, which is distinct from zero.
//
// Observations are immutable once persisted; corrections are new rows.
type Observation struct {
	// ArtifactKey identifies the landing artifact this row was loaded from.
	// It is the dedupe key for idempotent re-loads.
	ArtifactKey string `json:"artifactKey"`

	Location   Location   `json:"location"`
	ObservedAt *time.Time `json:"observedAt"` // when the phenomenon occurred, UTC
	FetchedAt  *time.Time `json:"fetchedAt"`  // when we retrieved it, UTC

	TemperatureC     *float64 `json:"temperatureC"`
	FeelsLikeC       *float64 `json:"feelsLikeC"`
	HumidityPct      *float64 `json:"humidityPct"`
	PressureHpa      *float64 `json:"pressureHpa"`
	WindSpeedMS      *float64 `json:"windSpeedMs"`
	WindDirectionDeg *float64 `json:"windDirectionDeg"`

	ConditionSummary string `json:"conditionSummary"`
	ConditionDetail  string `json:"conditionDetail"`
}

// Float returns a pointer to v; convenience for building observations.
func Float(v float64) *float64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
