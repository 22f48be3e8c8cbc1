// Package settings implements a grouped, scope-aware options store: one
// named row of key/value settings persisted through an interchangeable
// storage backend, guarded by a schema-driven sanitize/validate pipeline and
// a write gate that must approve every mutation.
//
// Staging (Stage, StageMany) touches memory only; Delete, Clear,
// SeedIfMissing and Migrate persist immediately; CommitMerge and
// CommitReplace flush staged state. This two-tier split is deliberate and
// part of the public contract.
package settings

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/goliatone/go-settings/gate"
	"github.com/goliatone/go-settings/layering"
	"github.com/goliatone/go-settings/pkg/audit"
	"github.com/goliatone/go-settings/storage"
)

// reservedMigrationKey wraps scalar migration results so the persisted row
// stays a mapping.
const reservedMigrationKey = "value"

// MigrateFunc transforms the raw persisted row during Migrate. It receives a
// detached copy of the current row; returning a value deep-equal to the
// input makes the migration a no-op.
type MigrateFunc func(current map[string]any, store *Store) any

// Store holds one named settings row: staged in-memory values, the schema,
// the write gate configuration, and a memoized adapter for its scope
// context. A Store is single-owner and not safe for concurrent use.
type Store struct {
	mainKey     string
	sc          storage.Context
	backend     storage.Backend
	adapter     storage.Adapter
	options     map[string]any
	schema      map[string]Rule
	policy      gate.Policy
	vetoes      *gate.Registry
	autoload    bool
	logger      Logger
	hooks       audit.Hooks
	defaultsCfg any

	// pendingSchema accumulates WithSchema rules until New merges them.
	pendingSchema map[string]Rule
}

// Option configures a Store during construction.
type Option func(*Store)

// WithContext selects the scope context; defaults to the site scope.
func WithContext(sc storage.Context) Option {
	return func(s *Store) {
		s.sc = sc
	}
}

// WithBackend selects the storage backend; defaults to an in-memory backend.
func WithBackend(backend storage.Backend) Option {
	return func(s *Store) {
		s.backend = backend
	}
}

// WithSchema registers initial rules. Equivalent to calling RegisterSchema
// right after construction, but a violation fails construction instead.
func WithSchema(rules map[string]Rule) Option {
	return func(s *Store) {
		if s.pendingSchema == nil {
			s.pendingSchema = map[string]Rule{}
		}
		for key, rule := range rules {
			s.pendingSchema[key] = rule
		}
	}
}

// WithPolicy installs the immutable write policy; defaults to allow-all so
// commit and seed paths work out of the box.
func WithPolicy(policy gate.Policy) Option {
	return func(s *Store) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithVetoRegistry installs a shared veto registry.
func WithVetoRegistry(registry *gate.Registry) Option {
	return func(s *Store) {
		if registry != nil {
			s.vetoes = registry
		}
	}
}

// WithVeto subscribes a general veto on the store's registry.
func WithVeto(veto gate.VetoFunc) Option {
	return func(s *Store) {
		s.vetoes.Subscribe(veto)
	}
}

// WithScopedVeto subscribes a veto consulted only for mutations in scope.
func WithScopedVeto(scope storage.Scope, veto gate.VetoFunc) Option {
	return func(s *Store) {
		s.vetoes.SubscribeScoped(scope, veto)
	}
}

// WithAutoload sets the autoload hint applied when the row is first created.
// Meaningful only for site-scoped stores.
func WithAutoload(autoload bool) Option {
	return func(s *Store) {
		s.autoload = autoload
	}
}

// WithLogger attaches the observational sink for gate decisions,
// persistence attempts, and schema events.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditHooks subscribes mutation lifecycle hooks.
func WithAuditHooks(hooks audit.Hooks) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// WithDefaultsConfig supplies the object handed to lazy default resolvers.
func WithDefaultsConfig(cfg any) Option {
	return func(s *Store) {
		s.defaultsCfg = cfg
	}
}

// New constructs a Store for mainKey and reads the initial snapshot from its
// backend (an empty map when the row is absent). Configuration mistakes fail
// here, never at first use.
func New(mainKey string, opts ...Option) (*Store, error) {
	normalized := NormalizeKey(mainKey)
	if normalized == "" {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("main key %q normalizes to nothing", mainKey)}
	}

	s := &Store{
		mainKey: normalized,
		sc:      storage.SiteContext(),
		policy:  gate.AllowAll(),
		vetoes:  gate.NewRegistry(),
		logger:  noopLogger{},
		schema:  map[string]Rule{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.backend == nil {
		s.backend = storage.NewMemoryBackend()
	}

	if s.pendingSchema != nil {
		merged, err := mergeSchema(nil, s.pendingSchema)
		if err != nil {
			return nil, err
		}
		s.schema = merged
		s.pendingSchema = nil
	}

	snapshot, found := s.adapterRef().Read(context.Background(), s.mainKey)
	if found {
		s.options = layering.CloneValues(snapshot)
	} else {
		s.options = map[string]any{}
	}
	return s, nil
}

// MainKey returns the row name the store manages.
func (s *Store) MainKey() string { return s.mainKey }

// Context returns the store's scope context.
func (s *Store) Context() storage.Context { return s.sc }

// Autoload reports the instance's autoload preference. The flag persisted at
// row creation is frozen regardless of later changes here.
func (s *Store) Autoload() bool { return s.autoload }

// SetAutoload updates the instance preference applied at the next first-time
// row creation.
func (s *Store) SetAutoload(autoload bool) { s.autoload = autoload }

// ReplaceContext swaps the scope context and drops the memoized adapter so
// the next operation rebuilds it. In-memory staged values are kept; callers
// switching rows should construct a fresh store instead.
func (s *Store) ReplaceContext(sc storage.Context) {
	s.sc = sc
	s.adapter = nil
}

// RegisterSchema merges rules into the schema, field by field per key. The
// registration is atomic: any contract violation leaves the prior schema
// unchanged.
func (s *Store) RegisterSchema(rules map[string]Rule) error {
	merged, err := mergeSchema(s.schema, rules)
	if err != nil {
		s.logger.LogSchema(SchemaEvent{Action: "register", Err: err})
		return err
	}
	s.schema = merged
	s.logger.LogSchema(SchemaEvent{Action: "register"})
	return nil
}

// Get returns the in-memory value for key, or def when absent. Purely a
// memory read; it never touches the backend.
func (s *Store) Get(key string, def any) any {
	if value, ok := s.options[NormalizeKey(key)]; ok {
		return value
	}
	return def
}

// Has reports whether key is present in memory, regardless of how falsy its
// value is.
func (s *Store) Has(key string) bool {
	_, ok := s.options[NormalizeKey(key)]
	return ok
}

// All returns a detached copy of the in-memory settings map.
func (s *Store) All() map[string]any {
	return layering.CloneValues(s.options)
}

// Stage validates and stores a single value in memory without persisting.
// Contract violations abort with an error; a gate denial returns false with
// memory untouched; re-staging an identical value short-circuits before the
// gate and reports true.
func (s *Store) Stage(key string, value any) (bool, error) {
	normalized := NormalizeKey(key)
	sanitized, err := s.applyRule(normalized, value)
	if err != nil {
		return false, err
	}

	if existing, ok := s.options[normalized]; ok && reflect.DeepEqual(existing, sanitized) {
		return true, nil
	}

	wc := gate.NewWriteContext(gate.OpStage, s.mainKey, s.sc,
		gate.WithKey(normalized),
		gate.WithPayload(map[string]any{normalized: sanitized}),
	)
	if !s.allow(wc) {
		return false, nil
	}

	s.options[normalized] = layering.Clone(sanitized)
	return true, nil
}

// StageMany validates the whole batch before staging anything: the first
// invalid key aborts the entire call with memory untouched. Keys already
// holding an identical value are dropped before the gate; the surviving keys
// pass the gate as one unit.
func (s *Store) StageMany(values map[string]any) (bool, error) {
	staged := make(map[string]any, len(values))
	for key, value := range values {
		normalized := NormalizeKey(key)
		sanitized, err := s.applyRule(normalized, value)
		if err != nil {
			return false, err
		}
		if existing, ok := s.options[normalized]; ok && reflect.DeepEqual(existing, sanitized) {
			continue
		}
		staged[normalized] = sanitized
	}
	if len(staged) == 0 {
		return true, nil
	}

	keys := make([]string, 0, len(staged))
	for key := range staged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	wc := gate.NewWriteContext(gate.OpStageMany, s.mainKey, s.sc,
		gate.WithKeys(keys),
		gate.WithPayload(staged),
	)
	if !s.allow(wc) {
		return false, nil
	}

	for key, value := range staged {
		s.options[key] = layering.Clone(value)
	}
	return true, nil
}

// Delete removes key from memory and immediately persists the full row.
// Deleting an absent key is a no-op reported as false.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	normalized := NormalizeKey(key)
	if _, ok := s.options[normalized]; !ok {
		return false, nil
	}

	wc := gate.NewWriteContext(gate.OpDelete, s.mainKey, s.sc, gate.WithKey(normalized))
	if !s.allow(wc) {
		return false, nil
	}

	delete(s.options, normalized)
	ok := s.saveAll(ctx, wc, s.options)
	if ok {
		s.emitAudit(ctx, "settings.deleted", wc, []string{normalized})
	}
	return ok, nil
}

// Clear empties memory and immediately persists the empty row.
func (s *Store) Clear(ctx context.Context) (bool, error) {
	wc := gate.NewWriteContext(gate.OpClear, s.mainKey, s.sc)
	if !s.allow(wc) {
		return false, nil
	}

	s.options = map[string]any{}
	ok := s.saveAll(ctx, wc, s.options)
	if ok {
		s.emitAudit(ctx, "settings.cleared", wc, nil)
	}
	return ok, nil
}

// CommitMerge reads the current backend snapshot, merges the staged values
// over it at the top level (backend keys preserved, staged keys win, nested
// structures replaced wholesale), and persists the combined row. Memory
// becomes the merged map on success.
func (s *Store) CommitMerge(ctx context.Context) (bool, error) {
	wc := gate.NewWriteContext(gate.OpPersist, s.mainKey, s.sc,
		gate.WithPayload(s.options),
		gate.WithMergeFromDB(true),
	)
	if !s.allow(wc) {
		return false, nil
	}

	snapshot, _ := s.adapterRef().Read(ctx, s.mainKey)
	merged := layering.Merge(snapshot, s.options)
	ok := s.saveAll(ctx, wc, merged)
	if ok {
		s.options = merged
		s.emitAudit(ctx, "settings.persisted", wc, sortedKeys(merged))
	}
	return ok, nil
}

// CommitReplace persists the in-memory map verbatim; backend-only keys
// absent from memory are dropped.
func (s *Store) CommitReplace(ctx context.Context) (bool, error) {
	wc := gate.NewWriteContext(gate.OpPersist, s.mainKey, s.sc,
		gate.WithPayload(s.options),
	)
	if !s.allow(wc) {
		return false, nil
	}

	ok := s.saveAll(ctx, wc, s.options)
	if ok {
		s.emitAudit(ctx, "settings.persisted", wc, sortedKeys(s.options))
	}
	return ok, nil
}

// SeedIfMissing creates the row with defaults when it does not exist yet.
// Existence is probed with the adapter's tagged absent result, so stored
// falsy payloads count as present. Passing nil defaults resolves them from
// the schema (Rule.Resolve lazily, then Rule.Default). The created row
// carries the instance's autoload preference.
func (s *Store) SeedIfMissing(ctx context.Context, defaults map[string]any) (bool, error) {
	if _, found := s.adapterRef().Read(ctx, s.mainKey); found {
		return false, nil
	}

	if defaults == nil {
		resolved := make(map[string]any, len(s.schema))
		for key, rule := range s.schema {
			value, err := s.resolveDefault(rule)
			if err != nil {
				return false, err
			}
			if value == nil {
				continue
			}
			resolved[key] = value
		}
		defaults = resolved
	}

	seeded := make(map[string]any, len(defaults))
	for key, value := range defaults {
		normalized := NormalizeKey(key)
		sanitized, err := s.applyRule(normalized, value)
		if err != nil {
			return false, err
		}
		seeded[normalized] = sanitized
	}

	wc := gate.NewWriteContext(gate.OpSeed, s.mainKey, s.sc,
		gate.WithKeys(sortedKeys(seeded)),
		gate.WithPayload(seeded),
	)
	if !s.allow(wc) {
		return false, nil
	}

	ok := s.saveAll(ctx, wc, seeded)
	if ok {
		s.options = layering.CloneValues(seeded)
		s.emitAudit(ctx, "settings.seeded", wc, sortedKeys(seeded))
	}
	return ok, nil
}

// Migrate rewrites the persisted row in place, bypassing the stage/commit
// split. Absent rows and transforms returning a deep-equal result are
// no-ops. Mapping results run through the schema pipeline per key; scalar
// results are wrapped under the reserved "value" key.
func (s *Store) Migrate(ctx context.Context, transform MigrateFunc) (bool, error) {
	if transform == nil {
		return false, &ConfigurationError{Reason: "migrate requires a transform"}
	}

	raw, found := s.adapterRef().Read(ctx, s.mainKey)
	if !found {
		return false, nil
	}

	next := transform(layering.CloneValues(raw), s)
	if reflect.DeepEqual(next, raw) {
		return false, nil
	}

	var payload map[string]any
	if mapping, ok := next.(map[string]any); ok {
		payload = make(map[string]any, len(mapping))
		for key, value := range mapping {
			normalized := NormalizeKey(key)
			sanitized, err := s.applyRule(normalized, value)
			if err != nil {
				return false, err
			}
			payload[normalized] = sanitized
		}
	} else {
		payload = map[string]any{reservedMigrationKey: next}
	}

	wc := gate.NewWriteContext(gate.OpMigrate, s.mainKey, s.sc,
		gate.WithKeys(sortedKeys(payload)),
		gate.WithPayload(payload),
	)
	if !s.allow(wc) {
		return false, nil
	}

	ok := s.saveAll(ctx, wc, payload)
	if ok {
		s.options = layering.CloneValues(payload)
		s.emitAudit(ctx, "settings.migrated", wc, sortedKeys(payload))
	}
	return ok, nil
}

// adapterRef returns the memoized adapter, building it on first use and
// after ReplaceContext.
func (s *Store) adapterRef() storage.Adapter {
	if s.adapter == nil {
		s.adapter = s.backend.Adapter(s.sc)
	}
	return s.adapter
}

// allow runs the gate and logs the decision.
func (s *Store) allow(wc gate.WriteContext) bool {
	ok, decision := gate.Evaluate(s.policy, s.vetoes, wc)
	s.logger.LogGate(GateEvent{
		WriteID:  wc.ID,
		Op:       wc.Op,
		MainKey:  wc.MainKey,
		Scope:    wc.Scope,
		Key:      wc.Key,
		Keys:     wc.Keys,
		Allowed:  ok,
		Decision: decision,
	})
	return ok
}

// saveAll is the persistence primitive shared by every committing path. It
// re-probes existence: absent rows are created with the autoload hint,
// falling back to an update when a concurrent creator won the race; existing
// rows are always updated, leaving the autoload flag frozen at whatever the
// first creation stored.
func (s *Store) saveAll(ctx context.Context, wc gate.WriteContext, values map[string]any) bool {
	adapter := s.adapterRef()
	_, exists := adapter.Read(ctx, s.mainKey)

	created := false
	var ok bool
	if exists {
		ok = adapter.Update(ctx, s.mainKey, values)
	} else {
		ok = adapter.Create(ctx, s.mainKey, values, s.autoload && adapter.SupportsAutoload())
		created = ok
		if !ok {
			ok = adapter.Update(ctx, s.mainKey, values)
		}
	}

	s.logger.LogPersist(PersistEvent{
		WriteID: wc.ID,
		Op:      wc.Op,
		MainKey: s.mainKey,
		Scope:   wc.Scope,
		Created: created,
		OK:      ok,
	})
	return ok
}

// emitAudit fans the event out to subscribed hooks. Hook failures are
// swallowed; audit is observational.
func (s *Store) emitAudit(ctx context.Context, verb string, wc gate.WriteContext, keys []string) {
	if !s.hooks.Enabled() {
		return
	}
	_ = s.hooks.Notify(ctx, audit.Event{
		Verb:       verb,
		WriteID:    wc.ID,
		MainKey:    s.mainKey,
		Scope:      wc.Scope.String(),
		Keys:       keys,
		OccurredAt: time.Now(),
	})
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
