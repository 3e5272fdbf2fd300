// Package storage defines the backend-agnostic repository used to publish
// the merged table into a database the dashboard can query, instead of (or
// in addition to) the CSV artifact.
//
// Backends register themselves from an init() in their own package; the
// pipeline selects one by kind, mirroring the file artifact's replace
// semantics: a load either fully replaces the previous table or leaves it
// untouched.
package storage

import (
	"context"
	"fmt"
	"sync"

	"baac/internal/frame"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is a registered backend kind: "sqlite", "postgres", "mssql".
	Kind string
	// DSN is passed through to the backend driver.
	DSN string
}

// ColType is the storage type of one published column.
type ColType int

const (
	TypeText ColType = iota
	TypeInt
	TypeFloat
)

// Column describes one column of the published table.
type Column struct {
	Name string
	Type ColType
}

// Repository publishes one table snapshot per run.
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// Replace atomically replaces the named table with the given rows.
	// Implementations run DDL and load in one transaction where the backend
	// allows it; on error the previous table content must survive.
	Replace(ctx context.Context, table string, cols []Column, rows [][]any) (int64, error)
}

// InferColumns derives column storage types from the cells of f. A column
// holding only nulls, or mixing types, falls back to text.
func InferColumns(f *frame.Frame) []Column {
	out := make([]Column, len(f.Cols))
	for ci, name := range f.Cols {
		t := TypeText
		decided := false
		for _, row := range f.Rows {
			if ci >= len(row) || row[ci] == nil {
				continue
			}
			var cur ColType
			switch row[ci].(type) {
			case int64:
				cur = TypeInt
			case float64:
				cur = TypeFloat
			default:
				cur = TypeText
			}
			if !decided {
				t = cur
				decided = true
				continue
			}
			if cur == t {
				continue
			}
			// int + float mix widens to float; anything else is text.
			if (cur == TypeInt && t == TypeFloat) || (cur == TypeFloat && t == TypeInt) {
				t = TypeFloat
				continue
			}
			t = TypeText
			break
		}
		out[ci] = Column{Name: name, Type: t}
	}
	return out
}

// ---- backend registry (one factory per kind) ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Called from backend init().
// Registering the same kind twice panics; ambiguous backend selection should
// fail fast at startup, not at load time.
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

// New constructs a Repository for the configured kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
