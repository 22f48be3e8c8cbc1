// Package gate implements the write-approval pipeline every settings
// mutation must pass: an immutable policy consulted first, then externally
// subscribed veto callbacks, general before scope-specific. A denial at any
// stage is a boolean outcome, never an error.
package gate

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-settings/layering"
	"github.com/goliatone/go-settings/storage"
)

// Op names a mutating settings operation.
type Op string

const (
	OpStage     Op = "stage"
	OpStageMany Op = "stage_many"
	OpDelete    Op = "delete"
	OpClear     Op = "clear"
	OpSeed      Op = "seed"
	OpMigrate   Op = "migrate"
	OpPersist   Op = "persist"
)

// WriteContext is an immutable snapshot describing one intended mutation.
// Constructed fresh per operation and never mutated afterwards; the ID ties
// gate decisions, log records, and audit events of one mutation together.
type WriteContext struct {
	ID          string
	Op          Op
	MainKey     string
	Scope       storage.Scope
	BlogID      int64
	UserID      int64
	UserStorage storage.UserStorage
	UserGlobal  bool
	Key         string
	Keys        []string
	Payload     map[string]any
	MergeFromDB bool
}

// WriteOption attaches operation-specific detail to a WriteContext.
type WriteOption func(*WriteContext)

// WithKey records the single affected key.
func WithKey(key string) WriteOption {
	return func(wc *WriteContext) {
		wc.Key = key
	}
}

// WithKeys records the affected keys of a batch operation.
func WithKeys(keys []string) WriteOption {
	return func(wc *WriteContext) {
		wc.Keys = append([]string(nil), keys...)
	}
}

// WithPayload records the candidate values. The payload is copied so veto
// callbacks observe a read-only snapshot.
func WithPayload(payload map[string]any) WriteOption {
	return func(wc *WriteContext) {
		wc.Payload = layering.CloneValues(payload)
	}
}

// WithMergeFromDB marks a persistence call that merges the backend snapshot
// before writing.
func WithMergeFromDB(merge bool) WriteOption {
	return func(wc *WriteContext) {
		wc.MergeFromDB = merge
	}
}

// NewWriteContext builds the snapshot for one mutation against the row
// identified by mainKey within sc.
func NewWriteContext(op Op, mainKey string, sc storage.Context, opts ...WriteOption) WriteContext {
	wc := WriteContext{
		ID:          uuid.NewString(),
		Op:          op,
		MainKey:     mainKey,
		Scope:       sc.Scope(),
		BlogID:      sc.BlogID(),
		UserID:      sc.UserID(),
		UserStorage: sc.UserStorage(),
		UserGlobal:  sc.UserGlobal(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&wc)
		}
	}
	return wc
}
