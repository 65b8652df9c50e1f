package mcp

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/models"
)

// ErrNotFound is returned by GetWorkout for unknown ids.
var ErrNotFound = errors.New("workout not found")

// DataSource abstracts the tracker for MCP tools. Both Local (in-process) and
// HTTPClient (remote via REST API) satisfy this interface. Validation failures
// surface as *coordinator.ValidationError from either.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.Record, error)
	GetWorkout(ctx context.Context, id string) (models.Record, error)
	LogWorkout(ctx context.Context, at models.Coordinates, in coordinator.FormInput) (models.Record, error)
	ResetWorkouts(ctx context.Context, confirm bool) (bool, error)
}

// Local serves MCP requests from the coordinator in this process.
type Local struct {
	app *coordinator.Coordinator
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func NewLocal(app *coordinator.Coordinator) *Local {
	return &Local{app: app}
}

func (l *Local) ListWorkouts(_ context.Context) ([]models.Record, error) {
	return models.Records(l.app.Workouts()), nil
}

func (l *Local) GetWorkout(_ context.Context, id string) (models.Record, error) {
	w, ok := l.app.Find(id)
	if !ok {
		return models.Record{}, ErrNotFound
	}
	return w.Record(), nil
}

// LogWorkout records a workout at. When only persisting fails the returned
// record is still valid alongside the error.
func (l *Local) LogWorkout(ctx context.Context, at models.Coordinates, in coordinator.FormInput) (models.Record, error) {
	w, err := l.app.Log(ctx, at, in)
	if w.IsZero() {
		return models.Record{}, err
	}
	return w.Record(), err
}

func (l *Local) ResetWorkouts(ctx context.Context, confirm bool) (bool, error) {
	return l.app.Reset(ctx, confirm)
}
