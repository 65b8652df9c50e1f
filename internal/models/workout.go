package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the workout discriminator.
type Type string

const (
	TypeRunning Type = "running"
	TypeCycling Type = "cycling"
)

// Types lists every known workout type in form-selector order.
var Types = []Type{TypeRunning, TypeCycling}

// Valid reports whether t is a known workout type.
func (t Type) Valid() bool {
	switch t {
	case TypeRunning, TypeCycling:
		return true
	}
	return false
}

// Title returns the type with its first letter upper-cased ("Running").
func (t Type) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Variant is the type-specific part of a workout. It is implemented only by
// Running and Cycling.
type Variant interface {
	Type() Type
	isVariant()
}

// Running holds the running-specific input and its derived pace (min/km).
type Running struct {
	Cadence float64
	Pace    float64
}

func (Running) Type() Type { return TypeRunning }
func (Running) isVariant() {}

// Cycling holds the cycling-specific input and its derived speed (km/h).
// ElevationGain may be zero or negative.
type Cycling struct {
	ElevationGain float64
	Speed         float64
}

func (Cycling) Type() Type { return TypeCycling }
func (Cycling) isVariant() {}

// Workout is an immutable workout record. All derived values are computed once
// by NewRunning or NewCycling, or carried over verbatim by Rehydrate.
type Workout struct {
	id          string
	date        time.Time
	coords      Coordinates
	distance    float64
	duration    float64
	description string
	variant     Variant
}

// NewRunning builds a running workout created at date. Callers validate that
// distance and duration are positive.
func NewRunning(date time.Time, coords Coordinates, distance, duration, cadence float64) Workout {
	return newWorkout(date, coords, distance, duration, Running{
		Cadence: cadence,
		Pace:    duration / distance,
	})
}

// NewCycling builds a cycling workout created at date.
func NewCycling(date time.Time, coords Coordinates, distance, duration, elevationGain float64) Workout {
	return newWorkout(date, coords, distance, duration, Cycling{
		ElevationGain: elevationGain,
		Speed:         distance / (duration / 60),
	})
}

func newWorkout(date time.Time, coords Coordinates, distance, duration float64, v Variant) Workout {
	return Workout{
		id:          newID(),
		date:        date,
		coords:      coords,
		distance:    distance,
		duration:    duration,
		description: Describe(v.Type(), date),
		variant:     v,
	}
}

// newID returns a UUIDv7, which embeds the creation time and sorts by it.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Describe formats the display description, e.g. "Running on April 14".
func Describe(t Type, date time.Time) string {
	return t.Title() + " on " + date.Month().String() + " " + strconv.Itoa(date.Day())
}

func (w Workout) ID() string { return w.id }
func (w Workout) Date() time.Time { return w.date }
func (w Workout) Coords() Coordinates { return w.coords }
func (w Workout) Distance() float64 { return w.distance }
func (w Workout) Duration() float64 { return w.duration }
func (w Workout) Description() string { return w.description }
func (w Workout) Variant() Variant { return w.variant }
func (w Workout) Type() Type { return w.variant.Type() }
func (w Workout) IsZero() bool { return w.variant == nil }
