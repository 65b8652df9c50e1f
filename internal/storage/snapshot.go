package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/observability"
)

// WorkoutsKey is the slot holding the workouts snapshot.
const WorkoutsKey = "workouts"

// ErrMalformedSnapshot marks persisted data that is not a workouts snapshot.
var ErrMalformedSnapshot = errors.New("malformed workouts snapshot")

//go:embed schemas/snapshot-v1.json
var snapshotSchemaJSON string

var snapshotSchema = mustSchema(snapshotSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling snapshot schema: %v", err))
	}
	return s
}

// Snapshots reads and writes the whole workout list under WorkoutsKey.
// Every Save replaces the previous value; there are no partial writes and
// no version check, so the last writer wins.
type Snapshots struct {
	slots Slots
}

// NewSnapshots returns a Snapshots backed by slots.
func NewSnapshots(slots Slots) *Snapshots {
	return &Snapshots{slots: slots}
}

// Save serializes ws, derived fields included, and overwrites the slot.
func (s *Snapshots) Save(ctx context.Context, ws []models.Workout) error {
	b, err := EncodeSnapshot(models.Records(ws))
	if err != nil {
		return err
	}
	if err := s.slots.Put(ctx, WorkoutsKey, b); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	observability.RecordSnapshotSaved(len(ws), len(b))
	return nil
}

// Load returns the persisted records in saved order. An absent slot yields an
// empty list. Data that fails validation yields an error wrapping
// ErrMalformedSnapshot.
func (s *Snapshots) Load(ctx context.Context) ([]models.Record, error) {
	b, ok, err := s.slots.Get(ctx, WorkoutsKey)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	records, err := DecodeSnapshot(b)
	if err != nil {
		observability.RecordSnapshotLoadFailed()
		return nil, err
	}
	return records, nil
}

// Clear removes the slot entirely.
func (s *Snapshots) Clear(ctx context.Context) error {
	if err := s.slots.Delete(ctx, WorkoutsKey); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

// EncodeSnapshot renders records as the JSON array stored in the slot.
func EncodeSnapshot(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot validates b against the snapshot schema and decodes it.
// Empty input and JSON null decode to an empty list.
func DecodeSnapshot(b []byte) ([]models.Record, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}

	result, err := snapshotSchema.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSnapshot, collect(result.Errors()))
	}

	var records []models.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return records, nil
}

func collect(errs []gojsonschema.ResultError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
