package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/models"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and bodies.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// fastClient shortens retry backoff so failure tests stay quick.
func fastClient(url string) *HTTPClient {
	c := NewHTTPClient(url, nil)
	c.h.RetryWaitMin = time.Millisecond
	c.h.RetryWaitMax = 5 * time.Millisecond
	c.once.RetryWaitMin = time.Millisecond
	c.once.RetryWaitMax = 5 * time.Millisecond
	return c
}

var sampleRecord = models.NewRunning(time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC),
	models.Coordinates{Lat: 39, Lng: -12}, 5.2, 24, 178).Record()

// TestListWorkouts verifies the client parses the JSON array response.
func TestListWorkouts(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			writeTestJSON(t, w, http.StatusOK, []models.Record{sampleRecord})
		},
	})
	defer ts.Close()

	records, err := fastClient(ts.URL).ListWorkouts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ID != sampleRecord.ID || *records[0].Pace != *sampleRecord.Pace {
		t.Errorf("record = %+v, want %+v", records[0], sampleRecord)
	}
}

// TestGetWorkoutNotFound verifies that a 404 maps to ErrNotFound.
func TestGetWorkoutNotFound(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts/abc": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		},
	})
	defer ts.Close()

	_, err := fastClient(ts.URL).GetWorkout(context.Background(), "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// TestLogWorkoutSendsCoords verifies the request body carries the form fields
// and the location pair.
func TestLogWorkoutSendsCoords(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["type"] != "running" || body["distance"] != "5.2" {
				t.Errorf("body = %v", body)
			}
			coords, _ := body["coords"].([]any)
			if len(coords) != 2 || coords[0] != 39.0 || coords[1] != -12.0 {
				t.Errorf("coords = %v, want [39 -12]", body["coords"])
			}
			writeTestJSON(t, w, http.StatusCreated, sampleRecord)
		},
	})
	defer ts.Close()

	got, err := fastClient(ts.URL).LogWorkout(context.Background(), models.Coordinates{Lat: 39, Lng: -12},
		coordinator.FormInput{Type: "running", Distance: "5.2", Duration: "24", Cadence: "178"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sampleRecord.ID {
		t.Errorf("id = %q, want %q", got.ID, sampleRecord.ID)
	}
}

// TestHTTPClientLogWorkoutValidation verifies that a 422 becomes a ValidationError.
func TestHTTPClientLogWorkoutValidation(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusUnprocessableEntity, map[string]string{
				"error": coordinator.MsgNotPositive, "reason": coordinator.ReasonNotPositive,
			})
		},
	})
	defer ts.Close()

	_, err := fastClient(ts.URL).LogWorkout(context.Background(), models.Coordinates{}, coordinator.FormInput{Type: "running"})
	var verr *coordinator.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Reason != coordinator.ReasonNotPositive || verr.Message != coordinator.MsgNotPositive {
		t.Errorf("verr = %+v", verr)
	}
}

// TestResetWorkouts verifies the confirm flag is forwarded.
func TestResetWorkouts(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/reset": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]bool
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			writeTestJSON(t, w, http.StatusOK, map[string]bool{"reset": body["confirm"]})
		},
	})
	defer ts.Close()

	done, err := fastClient(ts.URL).ResetWorkouts(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("reset = false, want true")
	}
}

// TestHTTPClientRetriesServerError verifies that 5xx responses are retried and
// a later success is returned.
func TestHTTPClientRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeTestJSON(t, w, http.StatusOK, []models.Record{})
		},
	})
	defer ts.Close()

	if _, err := fastClient(ts.URL).ListWorkouts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

// TestHTTPClientServerError verifies the client returns an error once retries
// are exhausted.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"disk full"}`)
		},
	})
	defer ts.Close()

	_, err := fastClient(ts.URL).ListWorkouts(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

// TestHTTPClientLogWorkoutNotRetried verifies that a failed submission is sent
// exactly once, since the server may already have recorded it.
func TestHTTPClientLogWorkoutNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"disk full"}`)
		},
	})
	defer ts.Close()

	_, err := fastClient(ts.URL).LogWorkout(context.Background(), models.Coordinates{Lat: 39, Lng: -12},
		coordinator.FormInput{Type: "running", Distance: "5.2", Duration: "24", Cadence: "178"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}
