// Package geo provides the current geographic position.
package geo

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/models"
)

// ErrUnavailable is returned when no position can be obtained.
var ErrUnavailable = errors.New("position unavailable")

// Locator returns the user's current position. It blocks until the position
// is known or ctx is done; there is no retry.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}

// Static is a Locator configured with a fixed position. A nil Position makes
// every lookup fail with ErrUnavailable.
type Static struct {
	Position *models.Coordinates
}

func (s Static) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}
	if s.Position == nil {
		return models.Coordinates{}, ErrUnavailable
	}
	return *s.Position, nil
}

// Func adapts a function to Locator.
type Func func(ctx context.Context) (models.Coordinates, error)

func (f Func) CurrentPosition(ctx context.Context) (models.Coordinates, error) { return f(ctx) }
