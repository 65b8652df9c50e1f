package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a full stack over in-memory slots. A nil position makes
// the map unavailable.
func newTestServer(t *testing.T, position *models.Coordinates) *Server {
	t.Helper()
	log := testLogger()
	canvas := mapview.New()
	app := coordinator.New(store.New(), storage.NewSnapshots(storage.NewMemory()), canvas,
		geo.Static{Position: position}, coordinator.Options{Zoom: 17, TileURL: "https://tiles/{z}/{x}/{y}.png"}, log)
	if err := app.Start(context.Background()); err != nil && position != nil {
		t.Fatalf("start: %v", err)
	}
	return New(app, canvas, log)
}

func do(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

var here = &models.Coordinates{Lat: 38.7, Lng: -9.1}

// TestHealth verifies the liveness endpoint.
func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, here), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

// TestClickSubmitFlow drives the running scenario over HTTP: click, submit,
// then read the workout back by id and in the list.
func TestClickSubmitFlow(t *testing.T) {
	s := newTestServer(t, here)

	rec := do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":39,"lng":-12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("click status = %d, body %s", rec.Code, rec.Body)
	}
	st := decode[coordinator.State](t, rec)
	if st.Phase != coordinator.PhaseAwaitingInput || !st.Form.Visible {
		t.Errorf("state after click = %+v", st)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"5.2","duration":"24","cadence":"178"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body)
	}
	created := decode[models.Record](t, rec)
	if created.Description == "" || created.Pace == nil {
		t.Fatalf("created = %+v", created)
	}
	if created.Coords != (models.Coordinates{Lat: 39, Lng: -12}) {
		t.Errorf("coords = %+v", created.Coords)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decode[models.Record](t, rec); got.ID != created.ID {
		t.Errorf("id = %q, want %q", got.ID, created.ID)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/workouts", "")
	list := decode[[]models.Record](t, rec)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/map", "")
	snap := decode[mapview.State](t, rec)
	if len(snap.Markers) != 1 {
		t.Errorf("markers = %d, want 1", len(snap.Markers))
	}
}

// TestSubmitValidationFailure verifies 422 and that the form stays open.
func TestSubmitValidationFailure(t *testing.T) {
	s := newTestServer(t, here)
	do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":39,"lng":-12}`)

	rec := do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"-5","duration":"20","cadence":"170"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["error"] != coordinator.MsgNotPositive || body["reason"] != coordinator.ReasonNotPositive {
		t.Errorf("body = %v", body)
	}

	st := decode[coordinator.State](t, do(t, s, http.MethodGet, "/api/v1/state", ""))
	if st.Phase != coordinator.PhaseAwaitingInput || st.Workouts != 0 {
		t.Errorf("state = %+v", st)
	}
}

// TestSubmitWithoutLocation verifies 409 when no map click preceded the form.
func TestSubmitWithoutLocation(t *testing.T) {
	rec := do(t, newTestServer(t, here), http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"5","duration":"20","cadence":"170"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

// TestSubmitWithCoords verifies the one-step variant that carries its own location.
func TestSubmitWithCoords(t *testing.T) {
	rec := do(t, newTestServer(t, here), http.MethodPost, "/api/v1/workouts",
		`{"type":"cycling","distance":"27","duration":"95","elevation":"523","coords":[40,-8]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	got := decode[models.Record](t, rec)
	if got.Type != models.TypeCycling || got.Coords != (models.Coordinates{Lat: 40, Lng: -8}) {
		t.Errorf("record = %+v", got)
	}
}

// TestClickWithoutMap verifies 409 when the position could not be obtained.
func TestClickWithoutMap(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":39,"lng":-12}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	st := decode[coordinator.State](t, do(t, s, http.MethodGet, "/api/v1/state", ""))
	if st.MapReady || len(st.Alerts) != 1 || st.Alerts[0] != coordinator.MsgPositionFailed {
		t.Errorf("state = %+v", st)
	}
}

// TestClickMissingFields verifies a 400 for an incomplete click.
func TestClickMissingFields(t *testing.T) {
	rec := do(t, newTestServer(t, here), http.MethodPost, "/api/v1/map/click", `{"lat":39}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestInvalidJSON verifies a 400 for bodies that are not JSON.
func TestInvalidJSON(t *testing.T) {
	rec := do(t, newTestServer(t, here), http.MethodPost, "/api/v1/workouts", `{nope`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestFormTypeAndCancel verifies the type toggle and cancel endpoints.
func TestFormTypeAndCancel(t *testing.T) {
	s := newTestServer(t, here)
	do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":39,"lng":-12}`)

	st := decode[coordinator.State](t, do(t, s, http.MethodPost, "/api/v1/form/type", `{"type":"cycling"}`))
	if !st.Form.ElevationVisible || st.Form.CadenceVisible {
		t.Errorf("form = %+v", st.Form)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/form/type", `{"type":"rowing"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown type status = %d, want 422", rec.Code)
	}

	st = decode[coordinator.State](t, do(t, s, http.MethodPost, "/api/v1/form/cancel", ""))
	if st.Phase != coordinator.PhaseIdle || st.Form.Visible {
		t.Errorf("state after cancel = %+v", st)
	}
}

// TestGetWorkoutNotFound verifies 404 for unknown ids.
func TestGetWorkoutNotFound(t *testing.T) {
	rec := do(t, newTestServer(t, here), http.MethodGet, "/api/v1/workouts/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// TestSelectWorkout verifies re-centering and that unknown ids still get 204.
func TestSelectWorkout(t *testing.T) {
	s := newTestServer(t, here)
	rec := do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"5","duration":"20","cadence":"170","coords":[40,-8]}`)
	created := decode[models.Record](t, rec)

	if rec := do(t, s, http.MethodPost, "/api/v1/workouts/missing/select", ""); rec.Code != http.StatusNoContent {
		t.Errorf("missing select status = %d, want 204", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/workouts/"+created.ID+"/select", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("select status = %d, want 204", rec.Code)
	}
	snap := decode[mapview.State](t, do(t, s, http.MethodGet, "/api/v1/map", ""))
	if snap.View.Center != created.Coords || !snap.View.Animate || snap.View.PanDurationMs != 1000 {
		t.Errorf("view = %+v", snap.View)
	}
}

// TestListETag verifies that the list carries an ETag, that a matching
// If-None-Match yields 304, and that the tag changes after a new workout.
func TestListETag(t *testing.T) {
	s := newTestServer(t, here)

	rec := do(t, s, http.MethodGet, "/api/v1/workouts", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list = %d %q", rec.Code, rec.Body)
	}
	tag := rec.Header().Get("ETag")
	if tag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil)
	req.Header.Set("If-None-Match", tag)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want 304", rec.Code)
	}

	do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"5","duration":"20","cadence":"170","coords":[40,-8]}`)
	if got := do(t, s, http.MethodGet, "/api/v1/workouts", "").Header().Get("ETag"); got == tag {
		t.Error("ETag unchanged after adding a workout")
	}
}

// TestListHTML verifies the rendered list fragment.
func TestListHTML(t *testing.T) {
	s := newTestServer(t, here)
	do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"cycling","distance":"27","duration":"95","elevation":"523","coords":[40,-8]}`)

	rec := do(t, s, http.MethodGet, "/api/v1/workouts/list.html", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "workout--cycling") || !strings.Contains(body, "17.1") {
		t.Errorf("body = %s", body)
	}
}

// TestReset verifies that an unconfirmed reset keeps data and a confirmed one
// removes it.
func TestReset(t *testing.T) {
	s := newTestServer(t, here)
	do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"5","duration":"20","cadence":"170","coords":[40,-8]}`)

	if got := decode[map[string]bool](t, do(t, s, http.MethodPost, "/api/v1/reset", `{"confirm":false}`)); got["reset"] {
		t.Error("unconfirmed reset reported success")
	}
	if list := decode[[]models.Record](t, do(t, s, http.MethodGet, "/api/v1/workouts", "")); len(list) != 1 {
		t.Fatalf("list after unconfirmed reset = %d, want 1", len(list))
	}

	if got := decode[map[string]bool](t, do(t, s, http.MethodPost, "/api/v1/reset", `{"confirm":true}`)); !got["reset"] {
		t.Error("confirmed reset reported no-op")
	}
	if list := decode[[]models.Record](t, do(t, s, http.MethodGet, "/api/v1/workouts", "")); len(list) != 0 {
		t.Errorf("list after reset = %d, want 0", len(list))
	}
}

// TestMetricsEndpoint verifies the Prometheus endpoint exposes the workout counter.
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, here)
	do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":"5","duration":"20","cadence":"170","coords":[40,-8]}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mapty_workouts_logged_total") {
		t.Error("metrics output lacks mapty_workouts_logged_total")
	}
}
