// Package storage defines the backend contract for settings rows and the
// scope contexts that select which backend a row lives in. Each adapter
// reads and writes exactly one named blob for one scope.
package storage

import "context"

// Adapter persists one named settings row for one scope. Ordinary I/O
// failures are reported as false, never as errors; only programmer mistakes
// surface earlier, at context construction.
type Adapter interface {
	// Read returns the stored payload and whether the row exists. A stored
	// falsy payload (empty map) still reports found=true; absence is the only
	// condition that reports false.
	Read(ctx context.Context, mainKey string) (map[string]any, bool)

	// Create inserts a new row, applying the autoload hint when the scope
	// supports it. Returns false when the row already exists or the write
	// fails.
	Create(ctx context.Context, mainKey string, values map[string]any, autoload bool) bool

	// Update overwrites an existing row. The autoload flag persisted at
	// creation time is left untouched.
	Update(ctx context.Context, mainKey string, values map[string]any) bool

	// SupportsAutoload reports whether the scope honours autoload hints.
	SupportsAutoload() bool

	// Scope identifies the storage domain the adapter serves.
	Scope() Scope
}

// Backend builds scope adapters. A settings store memoizes the adapter it
// obtains here and asks again only when its scope context is replaced.
type Backend interface {
	Adapter(sc Context) Adapter
}
