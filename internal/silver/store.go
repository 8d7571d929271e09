// Package silver holds the structured half of the pipeline: an append-only
// observations table in an embedded SQLite database, and the loader that
// fills it from landed bronze artifacts.
package silver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// ErrNotFound is returned when no observation matches the query.
var ErrNotFound = errors.New("no observations for location")

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	artifact_key       TEXT NOT NULL UNIQUE,
	city               TEXT NOT NULL,
	country            TEXT NOT NULL,
	observed_at        INTEGER,
	fetched_at         INTEGER,
	temperature_c      REAL,
	feels_like_c       REAL,
	humidity_pct       REAL,
	pressure_hpa       REAL,
	wind_speed_ms      REAL,
	wind_direction_deg REAL,
	condition_summary  TEXT NOT NULL DEFAULT '',
	condition_detail   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_observations_location
	ON observations (city, country, observed_at);
`

const columns = `artifact_key, city, country, observed_at, fetched_at,
	temperature_c, feels_like_c, humidity_pct, pressure_hpa,
	wind_speed_ms, wind_direction_deg, condition_summary, condition_detail`

// Store is the append-only silver table. The loader is its only writer;
// readers (API, gold summaries) never mutate rows. Timestamps are stored
// as unix nanoseconds, NULL when the upstream payload lacked the value.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the silver database at path. Use
// ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening silver database: %w", err)
	}
	// One connection: serializes writes, and keeps ":memory:" databases
	// from splitting across pooled connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing silver schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Insert appends obs. Re-inserting the same artifact key is a no-op, which
// makes re-processing a landed artifact safe. Returns whether a row was
// actually written.
func (s *Store) Insert(ctx context.Context, obs weather.Observation) (bool, error) {
	if obs.ArtifactKey == "" {
		return false, errors.New("observation has no artifact key")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(artifact_key) DO NOTHING`,
		obs.ArtifactKey,
		obs.Location.City,
		obs.Location.Country,
		nullUnixNano(obs.ObservedAt),
		nullUnixNano(obs.FetchedAt),
		nullFloat(obs.TemperatureC),
		nullFloat(obs.FeelsLikeC),
		nullFloat(obs.HumidityPct),
		nullFloat(obs.PressureHpa),
		nullFloat(obs.WindSpeedMS),
		nullFloat(obs.WindDirectionDeg),
		obs.ConditionSummary,
		obs.ConditionDetail,
	)
	if err != nil {
		return false, fmt.Errorf("inserting observation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting observation: %w", err)
	}
	return n > 0, nil
}

// Latest returns the most recently loaded observation for loc.
func (s *Store) Latest(ctx context.Context, loc weather.Location) (weather.Observation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM observations
		WHERE city = ? AND country = ?
		ORDER BY rowid DESC LIMIT 1`,
		loc.City, loc.Country,
	)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Observation{}, ErrNotFound
	}
	return obs, err
}

// Range returns observations for loc whose observed time falls in
// [from, to], ordered ascending. Rows without an observed time fall back to
// their fetch time so unvalidated data stays visible to quality readers.
func (s *Store) Range(ctx context.Context, loc weather.Location, from, to time.Time) ([]weather.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM observations
		WHERE city = ? AND country = ?
		  AND COALESCE(observed_at, fetched_at) BETWEEN ? AND ?
		ORDER BY COALESCE(observed_at, fetched_at) ASC`,
		loc.City, loc.Country, from.UTC().UnixNano(), to.UTC().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	var out []weather.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Day returns all observations for loc on the given UTC day.
func (s *Store) Day(ctx context.Context, loc weather.Location, day time.Time) ([]weather.Observation, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return s.Range(ctx, loc, start, end)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(row scanner) (weather.Observation, error) {
	var (
		obs                                   weather.Observation
		observedAt, fetchedAt                 sql.NullInt64
		temp, feels, hum, pres, wind, windDir sql.NullFloat64
	)
	err := row.Scan(
		&obs.ArtifactKey,
		&obs.Location.City,
		&obs.Location.Country,
		&observedAt,
		&fetchedAt,
		&temp,
		&feels,
		&hum,
		&pres,
		&wind,
		&windDir,
		&obs.ConditionSummary,
		&obs.ConditionDetail,
	)
	if err != nil {
		return weather.Observation{}, err
	}
	obs.ObservedAt = timeFromNano(observedAt)
	obs.FetchedAt = timeFromNano(fetchedAt)
	obs.TemperatureC = floatFrom(temp)
	obs.FeelsLikeC = floatFrom(feels)
	obs.HumidityPct = floatFrom(hum)
	obs.PressureHpa = floatFrom(pres)
	obs.WindSpeedMS = floatFrom(wind)
	obs.WindDirectionDeg = floatFrom(windDir)
	return obs, nil
}

func nullUnixNano(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixNano()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func timeFromNano(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func floatFrom(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
