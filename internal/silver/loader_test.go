package silver

import (
	"context"
	"testing"
	"time"

	"github.com/sentinelops/weather-sentinel/internal/bronze"
)

const samplePayload = `{
	"name": "Abidjan",
	"sys": {"country": "CI"},
	"dt": 1709294400,
	"main": {"temp": 28.4, "feels_like": 31.2, "humidity": 78, "pressure": 1012},
	"wind": {"speed": 3.6, "deg": 220},
	"weather": [{"main": "Clouds", "description": "scattered clouds"}]
}`

func landSample(t *testing.T, landing bronze.Landing, fetchedAt time.Time) bronze.ArtifactRef {
	t.Helper()
	ref, err := landing.Land([]byte(samplePayload), fetchedAt, loc)
	if err != nil {
		t.Fatalf("landing sample payload: %v", err)
	}
	return ref
}

func TestLoadMapsOpenWeatherFields(t *testing.T) {
	landing := bronze.NewFSLanding(t.TempDir(), "")
	store := newTestStore(t)
	loader := NewLoader(landing, store)

	fetchedAt := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	ref := landSample(t, landing, fetchedAt)

	obs, inserted, err := loader.Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Fatal("first load must insert a row")
	}

	if obs.Location.City != "Abidjan" || obs.Location.Country != "CI" {
		t.Errorf("unexpected location: %+v", obs.Location)
	}
	wantObserved := time.Unix(1709294400, 0).UTC()
	if obs.ObservedAt == nil || !obs.ObservedAt.Equal(wantObserved) {
		t.Errorf("expected observedAt %v, got %v", wantObserved, obs.ObservedAt)
	}
	if obs.FetchedAt == nil || !obs.FetchedAt.Equal(fetchedAt) {
		t.Errorf("expected fetchedAt %v, got %v", fetchedAt, obs.FetchedAt)
	}
	if obs.TemperatureC == nil || *obs.TemperatureC != 28.4 {
		t.Errorf("unexpected temperature: %v", obs.TemperatureC)
	}
	if obs.HumidityPct == nil || *obs.HumidityPct != 78 {
		t.Errorf("unexpected humidity: %v", obs.HumidityPct)
	}
	if obs.WindDirectionDeg == nil || *obs.WindDirectionDeg != 220 {
		t.Errorf("unexpected wind direction: %v", obs.WindDirectionDeg)
	}
	if obs.ConditionSummary != "Clouds" || obs.ConditionDetail != "scattered clouds" {
		t.Errorf("unexpected condition: %q / %q", obs.ConditionSummary, obs.ConditionDetail)
	}
}

func TestLoadTwiceProducesOneRow(t *testing.T) {
	landing := bronze.NewFSLanding(t.TempDir(), "")
	store := newTestStore(t)
	loader := NewLoader(landing, store)
	ctx := context.Background()

	ref := landSample(t, landing, time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC))

	if _, inserted, err := loader.Load(ctx, ref); err != nil || !inserted {
		t.Fatalf("first load: inserted=%v err=%v", inserted, err)
	}
	if _, inserted, err := loader.Load(ctx, ref); err != nil {
		t.Fatalf("second load: %v", err)
	} else if inserted {
		t.Fatal("re-loading the same artifact must not create a duplicate")
	}

	rows, err := store.Day(ctx, loc, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row, got %d", len(rows))
	}
}

func TestParseObservationMissingFieldsStayNil(t *testing.T) {
	ref := bronze.ArtifactRef{
		Key:       "bronze/weather/2024/03/01/120500Z_abidjan-ci.json",
		FetchedAt: time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC),
	}
	obs, err := ParseObservation([]byte(`{"name":"Abidjan","sys":{"country":"CI"}}`), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.ObservedAt != nil {
		t.Errorf("missing dt must map to nil observedAt, got %v", obs.ObservedAt)
	}
	if obs.TemperatureC != nil || obs.HumidityPct != nil || obs.WindSpeedMS != nil {
		t.Errorf("missing metrics must map to nil, got %+v", obs)
	}
}

func TestParseObservationSurfacesParseErrors(t *testing.T) {
	ref := bronze.ArtifactRef{Key: "k", FetchedAt: time.Now().UTC()}
	if _, err := ParseObservation([]byte(`{"truncated":`), ref); err == nil {
		t.Fatal("expected parse error to surface")
	}
}
