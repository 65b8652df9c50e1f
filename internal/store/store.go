// Package store holds the session's workouts in insertion order.
package store

import "github.com/claude/mapty/internal/models"

// Store is an ordered, in-memory list of workouts. It does no locking; the
// coordinator is its only caller and serializes access.
type Store struct {
	workouts []models.Workout
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Add appends w. The caller guarantees w has a fresh id.
func (s *Store) Add(w models.Workout) {
	s.workouts = append(s.workouts, w)
}

// FindByID returns the workout with the given id, or false if none matches.
func (s *Store) FindByID(id string) (models.Workout, bool) {
	for _, w := range s.workouts {
		if w.ID() == id {
			return w, true
		}
	}
	return models.Workout{}, false
}

// ReplaceAll swaps the whole content for ws, keeping ws's order.
func (s *Store) ReplaceAll(ws []models.Workout) {
	s.workouts = append([]models.Workout(nil), ws...)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.workouts = nil
}

// All returns a copy of the workouts, oldest first.
func (s *Store) All() []models.Workout {
	return append([]models.Workout(nil), s.workouts...)
}

// Len returns the number of workouts.
func (s *Store) Len() int {
	return len(s.workouts)
}
