package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sentinelops/weather-sentinel/internal/weather"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var (
	errRateLimited      = errors.New("rate limited")
	errServerError      = errors.New("server error")
	errAuthRejected     = errors.New("authentication rejected")
	errUnexpectedStatus = errors.New("unexpected status code")
	errMalformedPayload = errors.New("malformed response payload")
	errCircuitOpen      = errors.New("circuit breaker open")
	errNoAPIKey         = errors.New("openweather api key is not configured")
)

// RawResult is the verbatim body of one successful fetch plus the retrieval
// time. The payload is untouched; parsing happens downstream in the loader.
type RawResult struct {
	Payload   []byte
	FetchedAt time.Time
}

// Config bundles the client's settings. Zero values for BaseURL, Units,
// Policy, Sleeper and Now fall back to production defaults; tests override
// them for determinism.
type Config struct {
	APIKey  string
	BaseURL string
	Units   string

	Policy  RetryPolicy
	Sleeper Sleeper
	Now     func() time.Time
}

// Client fetches current-weather observations from OpenWeather with
// fail-fast retry semantics: either it returns exactly one complete raw
// payload, or a terminal error with no side effects.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	units      string
	httpClient *http.Client
	policy     RetryPolicy
	sleeper    Sleeper
	now        func() time.Time
	circuit    *gobreaker.CircuitBreaker
}

// New creates a Client backed by httpClient.
func New(httpClient *http.Client, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if len(cfg.Policy.Delays) == 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = realSleeper{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:       "openweathermap",
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		units:      cfg.Units,
		httpClient: httpClient,
		policy:     cfg.Policy,
		sleeper:    cfg.Sleeper,
		now:        cfg.Now,
		circuit:    cb,
	}
}

// Name identifies the upstream provider.
func (c *Client) Name() string { return c.name }

// Fetch retrieves one raw observation for loc. Transient failures (network
// errors, 5xx, 429, 401/403, syntactically invalid JSON) are retried on the
// policy's schedule; any other 4xx is terminal. After exhaustion the error
// wraps ErrRetriesExhausted and nothing has been written anywhere.
func (c *Client) Fetch(ctx context.Context, loc weather.Location) (RawResult, error) {
	if c.apiKey == "" {
		return RawResult{}, errNoAPIKey
	}

	var result RawResult

	attempt := func(n int) error {
		req, err := c.buildRequest(ctx, loc)
		if err != nil {
			return err
		}

		out, err := c.circuit.Execute(func() (interface{}, error) {
			return c.doOnce(req)
		})
		if err != nil {
			// An open circuit means the upstream has been failing across
			// runs; retrying inside this run will not help.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("%w: %v", errCircuitOpen, err)
			}
			return err
		}

		result = RawResult{
			Payload:   out.([]byte),
			FetchedAt: c.now().UTC(),
		}
		return nil
	}

	if err := c.policy.Run(ctx, c.sleeper, attempt); err != nil {
		return RawResult{}, fmt.Errorf("fetch %s for %s: %w", c.name, loc.Key(), err)
	}
	return result, nil
}

// doOnce performs a single HTTP attempt and classifies the outcome.
func (c *Client) doOnce(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failure.
		return nil, Transient(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("reading response body: %w", err))
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	// A 2xx body that is not valid JSON is unusable but retryable: the
	// next attempt may return a well-formed payload.
	if !json.Valid(body) {
		return nil, Transient(errMalformedPayload)
	}

	return body, nil
}

// classifyStatus maps an HTTP status to the retry taxonomy. 401/403 are
// treated as transient: in practice credential rejections from OpenWeather
// self-resolve (newly issued keys activate with a delay), so they are
// retried like 5xx rather than failing the run outright.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return Transient(fmt.Errorf("%w: %d", errRateLimited, code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Transient(fmt.Errorf("%w: %d", errAuthRejected, code))
	case code >= 500:
		return Transient(fmt.Errorf("%w: %d", errServerError, code))
	default:
		return fmt.Errorf("%w: %d", errUnexpectedStatus, code)
	}
}

func (c *Client) buildRequest(ctx context.Context, loc weather.Location) (*http.Request, error) {
	values := url.Values{}
	values.Set("appid", c.apiKey)
	values.Set("units", c.units)

	q := loc.City
	if loc.Country != "" {
		q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
	}
	values.Set("q", q)

	u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return req, nil
}
