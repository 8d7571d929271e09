package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sentinelops/weather-sentinel/internal/gold"
	"github.com/sentinelops/weather-sentinel/internal/quality"
	"github.com/sentinelops/weather-sentinel/internal/silver"
	"github.com/sentinelops/weather-sentinel/internal/weather"
)

var validate = validator.New()

// Clock supplies the evaluation instant for quality verdicts; injectable so
// handler tests are deterministic.
type Clock func() time.Time

// observationRow is the validated relation exposed to consumers: every
// observation field plus its verdict, computed on read.
type observationRow struct {
	weather.Observation
	DataStatus  quality.Status `json:"dataStatus"`
	FailedRules []string       `json:"failedRules,omitempty"`
}

func toRow(obs weather.Observation, now time.Time) observationRow {
	v := quality.Evaluate(obs, now)
	return observationRow{
		Observation: obs,
		DataStatus:  v.Status,
		FailedRules: v.FailedRules,
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, store *silver.Store, now Clock) {
	if now == nil {
		now = time.Now
	}

	v1 := app.Group("/api/v1")

	v1.Get("/observations/latest", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := store.Latest(c.Context(), locReq.toLocation())
		if err != nil {
			if errors.Is(err, silver.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observations for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch observations")
		}

		return c.JSON(toRow(obs, now().UTC()))
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		observations, err := store.Range(c.Context(), loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, silver.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observations for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch observations")
		}

		evalAt := now().UTC()
		rows := make([]observationRow, 0, len(observations))
		for _, obs := range observations {
			rows = append(rows, toRow(obs, evalAt))
		}

		return c.JSON(fiber.Map{
			"location":     loc,
			"from":         req.From,
			"to":           req.To,
			"observations": rows,
		})
	})

	v1.Get("/summary/daily", func(c *fiber.Ctx) error {
		var req dailyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		observations, err := store.Day(c.Context(), loc, req.Day)
		if err != nil && !errors.Is(err, silver.ErrNotFound) {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch observations")
		}

		// An empty day is a valid KO summary, not a 404.
		return c.JSON(gold.Summarize(loc, req.Day, observations, now().UTC()))
	})
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{City: l.City, Country: l.Country}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	req := locationQuery{
		City:    c.Query("city"),
		Country: c.Query("country"),
	}
	if err := validate.Struct(req); err != nil {
		return locationQuery{}, err
	}
	return req, nil
}

// rangeQuery holds parameters for the observations range endpoint.
type rangeQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtfield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	q.Location = locationQuery{City: c.Query("city"), Country: c.Query("country")}

	var err error
	if q.From, err = parseTimeParam(c.Query("from")); err != nil {
		return errors.New("invalid from: expected RFC3339 timestamp")
	}
	if q.To, err = parseTimeParam(c.Query("to")); err != nil {
		return errors.New("invalid to: expected RFC3339 timestamp")
	}
	return nil
}

// dailyQuery holds parameters for the daily summary endpoint.
type dailyQuery struct {
	Location locationQuery
	Day      time.Time `validate:"required"`
}

func (q *dailyQuery) bind(c *fiber.Ctx) error {
	q.Location = locationQuery{City: c.Query("city"), Country: c.Query("country")}

	raw := c.Query("date")
	if raw == "" {
		return errors.New("missing date: expected YYYY-MM-DD")
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return errors.New("invalid date: expected YYYY-MM-DD")
	}
	q.Day = day.UTC()
	return nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing")
	}
	return time.Parse(time.RFC3339, raw)
}
