package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/storage"
)

type clickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type typeRequest struct {
	Type models.Type `json:"type"`
}

// submitRequest is a form submission. With Coords set it also stands in for
// the preceding map click.
type submitRequest struct {
	coordinator.FormInput
	Coords *models.Coordinates `json:"coords,omitempty"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.State())
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.canvas.Snapshot())
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	err := s.canvas.Click(models.Coordinates{Lat: *req.Lat, Lng: *req.Lng})
	if errors.Is(err, mapview.ErrNotInitialized) || errors.Is(err, coordinator.ErrMapUnavailable) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "map is not loaded"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

func (s *Server) handleFormType(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.app.SelectType(req.Type); err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.State())
}

func (s *Server) handleFormCancel(w http.ResponseWriter, r *http.Request) {
	s.app.Cancel()
	writeJSON(w, http.StatusOK, s.app.State())
}

func (s *Server) handleSubmitWorkout(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		workout models.Workout
		err     error
	)
	if req.Coords != nil {
		workout, err = s.app.Log(r.Context(), *req.Coords, req.FormInput)
	} else {
		workout, err = s.app.Submit(r.Context(), req.FormInput)
	}

	var verr *coordinator.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, err)
	case errors.Is(err, coordinator.ErrNoLocation):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "click the map to choose a location first"})
	case err != nil:
		s.log.Error("submit workout", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusCreated, workout.Record())
	}
}

// handleListWorkouts returns every workout in insertion order. The body is
// identical to the persisted snapshot, and its xxhash is the ETag.
func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	body, err := storage.EncodeSnapshot(models.Records(s.app.Workouts()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	tag := etag(body)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match == tag || match == "*" {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	workout, ok := s.app.Find(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, workout.Record())
}

// handleSelectWorkout re-centers the map. Unknown ids are not an error.
func (s *Server) handleSelectWorkout(w http.ResponseWriter, r *http.Request) {
	s.app.Select(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHTML(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := render.WriteList(&buf, s.app.Entries()); err != nil {
		s.log.Error("render list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	done, err := s.app.Reset(r.Context(), req.Confirm)
	if err != nil {
		s.log.Error("reset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": done})
}

func etag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *coordinator.ValidationError
	if !errors.As(err, &verr) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
		"error":  verr.Message,
		"reason": verr.Reason,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
