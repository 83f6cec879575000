// Package storage defines the backend-agnostic repository interface used by
// the import pipeline, plus the factory registry the backends plug into.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to open a repository.
//
// Schema is the target schema for all nine import tables. Backends qualify
// bare table names with it in whatever way their engine supports (Postgres
// and SQL Server use "schema.table"; SQLite flattens to a "schema_" prefix).
type Config struct {
	Kind   string
	DSN    string
	Schema string
}

// Inserter is the single write operation the batch loader needs: one
// multi-row INSERT per table, all rows in one round trip, input order
// preserved. An empty rows slice is a no-op.
type Inserter interface {
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Tx is a storage transaction. One cadence flush runs inside one Tx so a
// mid-flush failure leaves no partial batch behind.
type Tx interface {
	Inserter

	Commit(ctx context.Context) error
	// Rollback after Commit is a no-op, so it is safe to defer.
	Rollback(ctx context.Context) error
}

// Repository is a backend-agnostic handle to the import target database.
//
// The interface is intentionally minimal: the pipeline only bulk-inserts,
// counts, and runs the externally supplied DDL script. Each backend
// implements the semantics in its own idiomatic way.
type Repository interface {
	Inserter

	// Begin opens a transaction for one batch flush.
	Begin(ctx context.Context) (Tx, error)

	// ExecScript executes an externally supplied SQL script verbatim.
	// The script content is opaque to the pipeline.
	ExecScript(ctx context.Context, script string) error

	// CountRows returns the number of rows in a table, for the import summary.
	CountRows(ctx context.Context, table string) (int64, error)

	// Close releases backend resources. Call once at process shutdown.
	Close()
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package. Registering the
// same kind twice panics: failing fast beats ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
