// Package quality classifies observations as OK or KO against explicit
// range, null and freshness rules. Verdicts are derived on read; the gate
// never mutates or discards the underlying row, so detecting bad data is a
// successful outcome, not an error.
package quality

import (
	"time"

	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// Status is the per-row classification exposed to downstream consumers.
type Status string

const (
	StatusOK Status = "OK"
	StatusKO Status = "KO"
)

// Verdict annotates one observation with its status and, when KO, the names
// of every rule that fired. Consumers only need the status today; the rule
// names are kept for diagnostics.
type Verdict struct {
	Status      Status   `json:"status"`
	FailedRules []string `json:"failedRules,omitempty"`
}

// Rule is one named predicate. It returns true when the observation
// violates the rule at the given evaluation instant.
type Rule struct {
	Name  string
	Fails func(obs weather.Observation, now time.Time) bool
}

// MaxStaleness is how old a fetch may be before the row is considered
// stale: a bound against a stalled pipeline re-serving old data as current.
const MaxStaleness = 48 * time.Hour

// Range bounds are loose, physically-motivated sanity limits. They flag
// clearly erroneous sensor or API data, not edge-of-normal weather.
const (
	MinTemperatureC = -10.0
	MaxTemperatureC = 60.0
	MinHumidityPct  = 0.0
	MaxHumidityPct  = 100.0
)

// Rules is the ordered list of admission rules. A row is KO iff any rule
// fires.
var Rules = []Rule{
	{
		Name: "missing_observed_at",
		Fails: func(obs weather.Observation, _ time.Time) bool {
			return obs.ObservedAt == nil
		},
	},
	{
		Name: "missing_temperature",
		Fails: func(obs weather.Observation, _ time.Time) bool {
			return obs.TemperatureC == nil
		},
	},
	{
		Name: "temperature_out_of_range",
		Fails: func(obs weather.Observation, _ time.Time) bool {
			return obs.TemperatureC != nil &&
				(*obs.TemperatureC < MinTemperatureC || *obs.TemperatureC > MaxTemperatureC)
		},
	},
	{
		Name: "missing_humidity",
		Fails: func(obs weather.Observation, _ time.Time) bool {
			return obs.HumidityPct == nil
		},
	},
	{
		Name: "humidity_out_of_range",
		Fails: func(obs weather.Observation, _ time.Time) bool {
			return obs.HumidityPct != nil &&
				(*obs.HumidityPct < MinHumidityPct || *obs.HumidityPct > MaxHumidityPct)
		},
	},
	{
		Name: "missing_fetched_at",
		Fails: func(obs weather.Observation, _ time.Time) bool {
			return obs.FetchedAt == nil
		},
	},
	{
		Name: "stale_data",
		Fails: func(obs weather.Observation, now time.Time) bool {
			return obs.FetchedAt != nil && obs.FetchedAt.Before(now.Add(-MaxStaleness))
		},
	},
}

// Evaluate classifies obs at the given instant. Pure: same observation and
// same now always yield the same verdict. Callers must pass now explicitly
// rather than relying on a global clock.
func Evaluate(obs weather.Observation, now time.Time) Verdict {
	var failed []string
	for _, r := range Rules {
		if r.Fails(obs, now) {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		return Verdict{Status: StatusKO, FailedRules: failed}
	}
	return Verdict{Status: StatusOK}
}
