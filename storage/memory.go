package storage

import (
	"context"
	"sync"

	"github.com/goliatone/go-settings/layering"
)

// MemoryBackend keeps settings rows in process memory. It backs tests and
// short-lived embedders; rows are deep-copied on the way in and out so no
// caller shares mutable state with the backend.
type MemoryBackend struct {
	mu     sync.Mutex
	prefix string
	rows   map[rowKey]*memoryRow
}

type rowKey struct {
	scope  Scope
	blogID int64
	userID int64
	name   string
}

type memoryRow struct {
	values   map[string]any
	autoload bool
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// MemoryWithPrefix sets the prefix applied to non-global user-option rows.
func MemoryWithPrefix(prefix string) MemoryOption {
	return func(b *MemoryBackend) {
		b.prefix = prefix
	}
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		prefix: DefaultPrefix,
		rows:   map[rowKey]*memoryRow{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Adapter returns the adapter serving sc. Adapters share the backend's row
// table, so two stores pointed at the same context observe each other's rows.
func (b *MemoryBackend) Adapter(sc Context) Adapter {
	return &memoryAdapter{backend: b, sc: sc}
}

// Row returns a copy of the stored payload for sc and mainKey, plus whether
// the row exists. Intended for tests asserting on persisted state.
func (b *MemoryBackend) Row(sc Context, mainKey string) (map[string]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	row, ok := b.rows[b.key(sc, mainKey)]
	if !ok {
		return nil, false
	}
	return layering.CloneValues(row.values), true
}

// Autoload reports the autoload flag persisted for sc and mainKey.
func (b *MemoryBackend) Autoload(sc Context, mainKey string) (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	row, ok := b.rows[b.key(sc, mainKey)]
	if !ok {
		return false, false
	}
	return row.autoload, true
}

// Len returns the number of stored rows across all scopes.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

func (b *MemoryBackend) key(sc Context, mainKey string) rowKey {
	name := mainKey
	if sc.Scope() == ScopeUser && sc.UserStorage() == UserStorageOption && !sc.UserGlobal() {
		name = b.prefix + mainKey
	}
	return rowKey{
		scope:  sc.Scope(),
		blogID: sc.BlogID(),
		userID: sc.UserID(),
		name:   name,
	}
}

type memoryAdapter struct {
	backend *MemoryBackend
	sc      Context
}

func (a *memoryAdapter) Read(_ context.Context, mainKey string) (map[string]any, bool) {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()
	row, ok := a.backend.rows[a.backend.key(a.sc, mainKey)]
	if !ok {
		return nil, false
	}
	return cloneOrEmpty(row.values), true
}

func (a *memoryAdapter) Create(_ context.Context, mainKey string, values map[string]any, autoload bool) bool {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()
	key := a.backend.key(a.sc, mainKey)
	if _, exists := a.backend.rows[key]; exists {
		return false
	}
	a.backend.rows[key] = &memoryRow{
		values:   cloneOrEmpty(values),
		autoload: autoload && a.SupportsAutoload(),
	}
	return true
}

func (a *memoryAdapter) Update(_ context.Context, mainKey string, values map[string]any) bool {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()
	key := a.backend.key(a.sc, mainKey)
	row, exists := a.backend.rows[key]
	if !exists {
		return false
	}
	row.values = cloneOrEmpty(values)
	return true
}

func cloneOrEmpty(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	return layering.CloneValues(values)
}

func (a *memoryAdapter) SupportsAutoload() bool {
	return a.sc.Scope() == ScopeSite
}

func (a *memoryAdapter) Scope() Scope {
	return a.sc.Scope()
}
