// Package gold derives per-day aggregates from silver observations and
// their quality verdicts. Aggregates are computed on read; nothing here
// writes anywhere.
package gold

import (
	"time"

	"github.com/sentinelops/weather-sentinel/internal/quality"
	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// DailySummary is one location's aggregate for one UTC day. Temperature
// stats cover OK rows only, so a single wild sensor reading cannot skew
// the average; KO rows still show up in the counts.
type DailySummary struct {
	Location     weather.Location `json:"location"`
	Day          string           `json:"day"` // YYYY-MM-DD, UTC
	Observations int              `json:"observations"`
	OKCount      int              `json:"okCount"`
	KOCount      int              `json:"koCount"`

	MinTemperatureC *float64 `json:"minTemperatureC"`
	AvgTemperatureC *float64 `json:"avgTemperatureC"`
	MaxTemperatureC *float64 `json:"maxTemperatureC"`

	// DataStatus is OK only when the day has observations and none of
	// them were rejected by the quality gate.
	DataStatus quality.Status `json:"dataStatus"`
}

// Summarize aggregates the given day's observations for loc, evaluating
// each row at the given instant.
func Summarize(loc weather.Location, day time.Time, observations []weather.Observation, now time.Time) DailySummary {
	s := DailySummary{
		Location:   loc,
		Day:        day.UTC().Format("2006-01-02"),
		DataStatus: quality.StatusKO,
	}

	var (
		sum   float64
		count int
	)

	for _, obs := range observations {
		s.Observations++

		verdict := quality.Evaluate(obs, now)
		if verdict.Status != quality.StatusOK {
			s.KOCount++
			continue
		}
		s.OKCount++

		if obs.TemperatureC == nil {
			continue
		}
		t := *obs.TemperatureC
		sum += t
		count++
		if s.MinTemperatureC == nil || t < *s.MinTemperatureC {
			s.MinTemperatureC = weather.Float(t)
		}
		if s.MaxTemperatureC == nil || t > *s.MaxTemperatureC {
			s.MaxTemperatureC = weather.Float(t)
		}
	}

	if count > 0 {
		s.AvgTemperatureC = weather.Float(sum / float64(count))
	}
	if s.Observations > 0 && s.KOCount == 0 {
		s.DataStatus = quality.StatusOK
	}
	return s
}
