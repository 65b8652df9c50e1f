package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/models"
)

func sample(n int) []models.Workout {
	at := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	out := make([]models.Workout, 0, n)
	for i := range n {
		if i%2 == 0 {
			out = append(out, models.NewRunning(at, models.Coordinates{Lat: float64(i), Lng: 1}, 5, 25, 170))
		} else {
			out = append(out, models.NewCycling(at, models.Coordinates{Lat: float64(i), Lng: 1}, 20, 60, 100))
		}
	}
	return out
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := New()
	ws := sample(3)
	for _, w := range ws {
		s.Add(w)
	}

	require.Equal(t, 3, s.Len())
	all := s.All()
	for i := range ws {
		assert.Equal(t, ws[i].ID(), all[i].ID())
	}
}

func TestFindByID(t *testing.T) {
	s := New()
	_, ok := s.FindByID("anything")
	assert.False(t, ok, "empty store must report not found")

	ws := sample(4)
	s.ReplaceAll(ws)

	got, ok := s.FindByID(ws[2].ID())
	require.True(t, ok)
	assert.Equal(t, ws[2].ID(), got.ID())
	assert.Equal(t, ws[2].Coords(), got.Coords())

	_, ok = s.FindByID("stale-id")
	assert.False(t, ok)
}

func TestReplaceAllAndClear(t *testing.T) {
	s := New()
	s.Add(sample(1)[0])

	ws := sample(2)
	s.ReplaceAll(ws)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, ws[0].ID(), s.All()[0].ID())

	// Mutating the caller's slice must not leak into the store.
	ws[0] = sample(1)[0]
	assert.NotEqual(t, ws[0].ID(), s.All()[0].ID())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.All())
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	s.ReplaceAll(sample(2))
	all := s.All()
	all[0] = models.Workout{}
	assert.False(t, s.All()[0].IsZero())
}
