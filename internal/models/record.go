package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord is returned by Rehydrate for records that cannot be turned
// back into a Workout.
var ErrInvalidRecord = errors.New("invalid workout record")

// Coordinates is a map position. It is encoded as a [lat, lng] pair.
type Coordinates struct {
	Lat float64
	Lng float64
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

func (c *Coordinates) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("coords: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coords: want [lat, lng], got %d values", len(pair))
	}
	c.Lat, c.Lng = pair[0], pair[1]
	return nil
}

// Record is the plain, persisted form of a workout. Key names match the
// browser's localStorage snapshot so existing exports decode unchanged.
// Variant fields are pointers because zero is a legitimate elevation.
type Record struct {
	ID          string      `json:"id"`
	Date        time.Time   `json:"date"`
	Coords      Coordinates `json:"coords"`
	Distance    float64     `json:"distance"`
	Duration    float64     `json:"duration"`
	Type        Type        `json:"type"`
	Description string      `json:"description"`

	Cadence   *float64 `json:"cadence,omitempty"`
	Pace      *float64 `json:"pace,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}

// Record flattens w into its persisted form, derived fields included.
func (w Workout) Record() Record {
	r := Record{
		ID:          w.id,
		Date:        w.date,
		Coords:      w.coords,
		Distance:    w.distance,
		Duration:    w.duration,
		Type:        w.Type(),
		Description: w.description,
	}
	switch v := w.variant.(type) {
	case Running:
		r.Cadence, r.Pace = ptr(v.Cadence), ptr(v.Pace)
	case Cycling:
		r.Elevation, r.Speed = ptr(v.ElevationGain), ptr(v.Speed)
	}
	return r
}

// Records flattens a list of workouts, preserving order.
func Records(ws []Workout) []Record {
	out := make([]Record, len(ws))
	for i, w := range ws {
		out[i] = w.Record()
	}
	return out
}

// Rehydrate restores the typed variant of a persisted record. Stored values,
// including description and the derived metric, are carried over as-is.
func Rehydrate(r Record) (Workout, error) {
	if r.ID == "" {
		return Workout{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}

	var v Variant
	switch r.Type {
	case TypeRunning:
		if r.Cadence == nil || r.Pace == nil {
			return Workout{}, fmt.Errorf("%w: running workout %s lacks cadence or pace", ErrInvalidRecord, r.ID)
		}
		v = Running{Cadence: *r.Cadence, Pace: *r.Pace}
	case TypeCycling:
		if r.Elevation == nil || r.Speed == nil {
			return Workout{}, fmt.Errorf("%w: cycling workout %s lacks elevation or speed", ErrInvalidRecord, r.ID)
		}
		v = Cycling{ElevationGain: *r.Elevation, Speed: *r.Speed}
	default:
		return Workout{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, r.Type)
	}

	return Workout{
		id:          r.ID,
		date:        r.Date,
		coords:      r.Coords,
		distance:    r.Distance,
		duration:    r.Duration,
		description: r.Description,
		variant:     v,
	}, nil
}

// RehydrateAll restores every record, stopping at the first invalid one.
func RehydrateAll(rs []Record) ([]Workout, error) {
	out := make([]Workout, 0, len(rs))
	for i, r := range rs {
		w, err := Rehydrate(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func ptr(f float64) *float64 { return &f }
