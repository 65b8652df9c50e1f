// Package storage persists the workout snapshot in a durable key-value slot.
package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Slots is a durable string-keyed byte store.
type Slots interface {
	// Get returns the value under key and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put overwrites the value under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key entirely.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Slot store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a slot store.
type Options struct {
	Driver         string
	SQLitePath     string
	PostgresDSN    string
	MigrationsPath string
}

// Open connects the slot store named by opts.Driver. For postgres, pending
// migrations are applied first.
func Open(ctx context.Context, opts Options, log *slog.Logger) (Slots, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		db, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite slot store opened", "path", opts.SQLitePath)
		return db, nil
	case DriverPostgres:
		if err := RunMigrations(opts.PostgresDSN, opts.MigrationsPath); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		db, err := New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info("database connected")
		return db, nil
	case DriverMemory:
		log.Warn("memory slot store: workouts will not survive a restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
