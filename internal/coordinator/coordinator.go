// Package coordinator turns map clicks and form submissions into persisted,
// rendered workouts.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/observability"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/store"
)

// Phase is the user-visible state of the tracker.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingInput
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingInput:
		return "awaiting_input"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Map is the map widget as seen by the coordinator.
type Map interface {
	Initialize(center models.Coordinates, zoom int)
	Reset()
	AddTileLayer(url, attribution string)
	OnClick(h mapview.ClickHandler)
	AddMarker(at models.Coordinates) mapview.MarkerID
	BindPopup(id mapview.MarkerID, opts mapview.PopupOptions, content string)
	SetView(center models.Coordinates, zoom int, opts mapview.ViewOptions)
}

// Persister stores whole-store snapshots.
type Persister interface {
	Save(ctx context.Context, ws []models.Workout) error
	Load(ctx context.Context) ([]models.Record, error)
	Clear(ctx context.Context) error
}

// Options configures map presentation.
type Options struct {
	Zoom        int
	TileURL     string
	Attribution string
	// Now stamps new workouts. Defaults to time.Now.
	Now func() time.Time
}

const maxAlerts = 20

// State is a read-only summary for the surface.
type State struct {
	Phase    Phase     `json:"phase"`
	Form     FormState `json:"form"`
	MapReady bool      `json:"map_ready"`
	Workouts int       `json:"workouts"`
	Alerts   []string  `json:"alerts"`
}

// Coordinator owns the session: the workout store, the form, and what is on
// the map. All handlers are serialized by one mutex, so there is a single
// logical actor mutating state at any time.
type Coordinator struct {
	mu       sync.Mutex
	store    *store.Store
	snaps    Persister
	mapw     Map
	locator  geo.Locator
	opts     Options
	log      *slog.Logger
	phase    Phase
	location models.Coordinates
	form     FormState
	entries  []render.Entry
	mapReady bool
	alerts   []string
}

// New wires a Coordinator. Call Start before handling events.
func New(st *store.Store, snaps Persister, m Map, locator geo.Locator, opts Options, log *slog.Logger) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		store:   st,
		snaps:   snaps,
		mapw:    m,
		locator: locator,
		opts:    opts,
		log:     log,
		form:    hiddenForm(models.TypeRunning),
	}
}

// Start (re)loads the display: persisted workouts first, then the map. A
// failed position lookup leaves the map inert and returns an error wrapping
// ErrGeolocationUnavailable; the list still works.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.phase = PhaseIdle
	c.form = hiddenForm(c.form.Type)
	c.mapReady = false
	c.mapw.Reset()
	err := c.loadLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	pos, err := c.locator.CurrentPosition(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.alertLocked(MsgPositionFailed)
		c.log.Warn("position lookup failed, continuing without map", "error", err)
		return fmt.Errorf("%w: %v", ErrGeolocationUnavailable, err)
	}

	c.mapw.Initialize(pos, c.opts.Zoom)
	c.mapw.AddTileLayer(c.opts.TileURL, c.opts.Attribution)
	c.mapw.OnClick(c.HandleMapClick)
	c.mapReady = true
	for _, w := range c.store.All() {
		c.renderMarkerLocked(w)
	}
	c.log.Info("map loaded", "lat", pos.Lat, "lng", pos.Lng, "markers", c.store.Len())
	return nil
}

// loadLocked replaces the store with the persisted snapshot. Absent or
// malformed data means no prior workouts.
func (c *Coordinator) loadLocked(ctx context.Context) error {
	records, err := c.snaps.Load(ctx)
	if errors.Is(err, storage.ErrMalformedSnapshot) {
		c.log.Warn("discarding persisted workouts", "error", err)
		records = nil
	} else if err != nil {
		return fmt.Errorf("loading workouts: %w", err)
	}

	ws, err := models.RehydrateAll(records)
	if err != nil {
		c.log.Warn("discarding persisted workouts", "error", err)
		ws = nil
	}
	c.store.ReplaceAll(ws)
	c.entries = render.Entries(ws)
	c.log.Info("workouts loaded", "count", len(ws))
	return nil
}

// HandleMapClick captures the clicked location and reveals the form. A click
// while the form is open moves the captured location.
func (c *Coordinator) HandleMapClick(at models.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mapReady {
		return ErrMapUnavailable
	}
	c.awaitInputLocked(at)
	return nil
}

func (c *Coordinator) awaitInputLocked(at models.Coordinates) {
	c.location = at
	c.phase = PhaseAwaitingInput
	c.form.Visible = true
	loc := at
	c.form.Location = &loc
}

// SelectType switches which type-specific field the form shows.
func (c *Coordinator) SelectType(t models.Type) error {
	if !t.Valid() {
		return &ValidationError{Reason: ReasonUnknownType, Message: MsgUnknownType}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	visible, loc := c.form.Visible, c.form.Location
	c.form = hiddenForm(t)
	c.form.Visible, c.form.Location = visible, loc
	return nil
}

// Submit validates the form and records the workout at the captured location.
// On a *ValidationError the form stays open and nothing is recorded. If the
// snapshot cannot be written the workout is still kept in the session and the
// returned error wraps the storage failure.
func (c *Coordinator) Submit(ctx context.Context, in FormInput) (models.Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAwaitingInput {
		return models.Workout{}, ErrNoLocation
	}
	return c.submitLocked(ctx, in)
}

func (c *Coordinator) submitLocked(ctx context.Context, in FormInput) (models.Workout, error) {
	w, err := buildWorkout(in, c.form.Type, c.location, c.opts.Now())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			observability.RecordValidationFailure(verr.Reason)
			c.alertLocked(verr.Message)
		}
		return models.Workout{}, err
	}

	c.store.Add(w)
	observability.RecordWorkoutLogged(string(w.Type()))
	if c.mapReady {
		c.renderMarkerLocked(w)
	}
	c.entries = append(c.entries, render.NewEntry(w))
	c.hideFormLocked()

	if err := c.snaps.Save(ctx, c.store.All()); err != nil {
		c.log.Error("persisting workouts failed", "id", w.ID(), "error", err)
		return w, fmt.Errorf("persisting workouts: %w", err)
	}
	c.log.Info("workout recorded", "id", w.ID(), "type", w.Type(), "description", w.Description())
	return w, nil
}

// Log records a workout at an explicit location in one step, as if the map
// had been clicked there and the form submitted. On failure the previous form
// state is restored.
func (c *Coordinator) Log(ctx context.Context, at models.Coordinates, in FormInput) (models.Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevPhase, prevLoc, prevForm := c.phase, c.location, c.form
	c.awaitInputLocked(at)
	w, err := c.submitLocked(ctx, in)
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.phase, c.location, c.form = prevPhase, prevLoc, prevForm
	}
	return w, err
}

// Cancel closes the form without recording anything.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hideFormLocked()
}

func (c *Coordinator) hideFormLocked() {
	c.phase = PhaseIdle
	c.form = hiddenForm(c.form.Type)
}

// Select re-centers the map on the workout with the given id. Unknown ids are
// ignored; they can only come from a stale list.
func (c *Coordinator) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.store.FindByID(id)
	if !ok {
		c.log.Debug("select: no workout with id", "id", id)
		return false
	}
	if c.mapReady {
		c.mapw.SetView(w.Coords(), c.opts.Zoom, mapview.ViewOptions{Animate: true, PanDuration: time.Second})
	}
	return true
}

// Reset deletes every workout, persisted and in memory, then reloads the
// display from scratch. Nothing happens unless confirmed is true.
func (c *Coordinator) Reset(ctx context.Context, confirmed bool) (bool, error) {
	if !confirmed {
		return false, nil
	}

	c.mu.Lock()
	if err := c.snaps.Clear(ctx); err != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("clearing workouts: %w", err)
	}
	c.store.Clear()
	c.entries = nil
	c.mu.Unlock()
	c.log.Info("workouts reset")

	if err := c.Start(ctx); err != nil && !errors.Is(err, ErrGeolocationUnavailable) {
		return true, err
	}
	return true, nil
}

func (c *Coordinator) renderMarkerLocked(w models.Workout) {
	id := c.mapw.AddMarker(w.Coords())
	c.mapw.BindPopup(id, render.PopupOptions(w), render.PopupContent(w))
}

func (c *Coordinator) alertLocked(msg string) {
	c.alerts = append(c.alerts, msg)
	if len(c.alerts) > maxAlerts {
		c.alerts = c.alerts[len(c.alerts)-maxAlerts:]
	}
}

// Workouts returns every workout, oldest first.
func (c *Coordinator) Workouts() []models.Workout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// Find returns the workout with the given id.
func (c *Coordinator) Find(id string) (models.Workout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.FindByID(id)
}

// Entries returns the rendered list, oldest first.
func (c *Coordinator) Entries() []render.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]render.Entry(nil), c.entries...)
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Coordinator) Form() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Alerts returns the most recent user-visible alerts, oldest first.
func (c *Coordinator) Alerts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.alerts...)
}

// State summarizes phase, form, map and alerts.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:    c.phase,
		Form:     c.form,
		MapReady: c.mapReady,
		Workouts: c.store.Len(),
		Alerts:   append([]string{}, c.alerts...),
	}
}
