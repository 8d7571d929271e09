package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// fakeSleeper records requested delays instead of waiting.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

var testLoc = weather.Location{City: "Abidjan", Country: "CI"}

const validPayload = `{"name":"Abidjan","sys":{"country":"CI"},"dt":1700000000,"main":{"temp":28.4,"humidity":78}}`

func newTestClient(baseURL string, sleeper Sleeper, now func() time.Time) *Client {
	return New(&http.Client{}, Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Sleeper: sleeper,
		Now:     now,
	})
}

func TestFetchExhaustsRetriesOnServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sleeper := &fakeSleeper{}
	c := newTestClient(srv.URL, sleeper, nil)

	_, err := c.Fetch(context.Background(), testLoc)
	if err == nil {
		t.Fatal("expected terminal error after exhausted retries")
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 4 {
		t.Fatalf("expected 4 total attempts, got %d", got)
	}

	want := []time.Duration{10 * time.Second, 30 * time.Second, 90 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected %d backoff waits, got %d", len(want), len(sleeper.delays))
	}
	for i, d := range want {
		if sleeper.delays[i] != d {
			t.Errorf("delay %d: expected %v, got %v", i, d, sleeper.delays[i])
		}
	}
}

func TestFetchDoesNotRetryOtherClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sleeper := &fakeSleeper{}
	c := newTestClient(srv.URL, sleeper, nil)

	_, err := c.Fetch(context.Background(), testLoc)
	if err == nil {
		t.Fatal("expected terminal error for 404")
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("404 must not consume retries, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
	if len(sleeper.delays) != 0 {
		t.Fatalf("expected no backoff waits, got %v", sleeper.delays)
	}
}

func TestFetchRetriesUnauthorizedThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(validPayload))
	}))
	defer srv.Close()

	sleeper := &fakeSleeper{}
	fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(srv.URL, sleeper, func() time.Time { return fetchedAt })

	res, err := c.Fetch(context.Background(), testLoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	want := []time.Duration{10 * time.Second, 30 * time.Second}
	if len(sleeper.delays) != len(want) || sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Fatalf("expected backoff waits %v, got %v", want, sleeper.delays)
	}
	if !res.FetchedAt.Equal(fetchedAt) {
		t.Errorf("expected fetchedAt %v, got %v", fetchedAt, res.FetchedAt)
	}
}

func TestFetchReturnsPayloadVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(validPayload))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &fakeSleeper{}, nil)

	res, err := c.Fetch(context.Background(), testLoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(res.Payload, []byte(validPayload)) {
		t.Fatalf("payload not byte-identical to upstream response:\nwant %q\ngot  %q", validPayload, res.Payload)
	}
}

func TestFetchTreatsMalformedBodyAsTransient(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"truncated":`))
	}))
	defer srv.Close()

	sleeper := &fakeSleeper{}
	c := newTestClient(srv.URL, sleeper, nil)

	_, err := c.Fetch(context.Background(), testLoc)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
}

func TestFetchRequiresAPIKey(t *testing.T) {
	c := New(&http.Client{}, Config{})
	if _, err := c.Fetch(context.Background(), testLoc); err == nil {
		t.Fatal("expected error when api key missing")
	}
}
