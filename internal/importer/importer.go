// Package importer merges browser localStorage exports into the persisted
// workout snapshot.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesErrored   int

	WorkoutsRead       int
	WorkoutsImported   int
	WorkoutsDuplicated int
	WorkoutsExisting   int
}

// Snapshots is the persisted workout list the importer merges into.
type Snapshots interface {
	Load(ctx context.Context) ([]models.Record, error)
	Save(ctx context.Context, ws []models.Workout) error
}

// Importer reads exported workout arrays and appends the ones not yet persisted.
type Importer struct {
	snaps  Snapshots
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(snaps Snapshots, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{snaps: snaps, log: log, dryRun: dryRun}
}

// Import processes every export file in order. Files that cannot be read or do
// not hold a valid workout array are logged and skipped. Persisted workouts
// keep their position; new ones are appended in import order, and the merged
// list is saved once.
func (imp *Importer) Import(ctx context.Context, paths ...string) (*Stats, error) {
	existing, err := imp.loadExisting(ctx)
	if err != nil {
		return &imp.stats, err
	}
	imp.stats.WorkoutsExisting = len(existing)

	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		seen[w.ID()] = true
	}
	merged := existing

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		ws, err := readFile(path)
		if err != nil {
			imp.log.Warn("skipping export", "file", path, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		imp.stats.FilesProcessed++
		imp.stats.WorkoutsRead += len(ws)

		for _, w := range ws {
			if seen[w.ID()] {
				imp.stats.WorkoutsDuplicated++
				continue
			}
			seen[w.ID()] = true
			merged = append(merged, w)
			imp.stats.WorkoutsImported++
		}
		imp.log.Info("export read", "file", path, "workouts", len(ws))
	}

	if imp.dryRun || imp.stats.WorkoutsImported == 0 {
		return &imp.stats, nil
	}
	if err := imp.snaps.Save(ctx, merged); err != nil {
		return &imp.stats, fmt.Errorf("saving merged workouts: %w", err)
	}
	return &imp.stats, nil
}

// loadExisting refuses to continue over a malformed snapshot, since saving
// would overwrite it.
func (imp *Importer) loadExisting(ctx context.Context) ([]models.Workout, error) {
	records, err := imp.snaps.Load(ctx)
	if errors.Is(err, storage.ErrMalformedSnapshot) {
		return nil, fmt.Errorf("persisted workouts are malformed, refusing to overwrite: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("loading persisted workouts: %w", err)
	}
	ws, err := models.RehydrateAll(records)
	if err != nil {
		return nil, fmt.Errorf("persisted workouts are invalid, refusing to overwrite: %w", err)
	}
	return ws, nil
}

func readFile(path string) ([]models.Workout, error) {
	data, err := ReadExport(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates an exported workouts array and rehydrates every record.
func Parse(data []byte) ([]models.Workout, error) {
	records, err := storage.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return models.RehydrateAll(records)
}
