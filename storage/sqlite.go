package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-settings/internal/codec"
)

// DefaultPrefix is applied to table names and to non-global user-option keys.
const DefaultPrefix = "gs_"

// SQLiteBackend persists settings rows in SQLite using the pure-Go driver.
// One backend serves every scope: site and network rows live in dedicated
// tables, blog rows are keyed by blog id, user rows live in a user meta table.
type SQLiteBackend struct {
	db     *sql.DB
	prefix string
	logger *slog.Logger
}

// SQLiteOption configures a SQLiteBackend.
type SQLiteOption func(*SQLiteBackend)

// SQLiteWithPrefix overrides the table and user-option key prefix.
func SQLiteWithPrefix(prefix string) SQLiteOption {
	return func(b *SQLiteBackend) {
		b.prefix = prefix
	}
}

// SQLiteWithLogger attaches a logger for backend I/O failures, which are
// otherwise swallowed into the adapter's boolean results.
func SQLiteWithLogger(logger *slog.Logger) SQLiteOption {
	return func(b *SQLiteBackend) {
		b.logger = logger
	}
}

// OpenSQLite opens (or creates) a SQLite-backed settings store. Use
// ":memory:" for an in-memory database.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite %q: %w", path, err)
	}
	backend, err := NewSQLiteBackend(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return backend, nil
}

// NewSQLiteBackend wraps an existing database handle, creating the settings
// tables when missing.
func NewSQLiteBackend(db *sql.DB, opts ...SQLiteOption) (*SQLiteBackend, error) {
	b := &SQLiteBackend{db: db, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	// WAL keeps concurrent readers cheap.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("storage: set WAL mode: %w", err)
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]soptions (
		option_name  TEXT PRIMARY KEY,
		option_value TEXT NOT NULL,
		autoload     INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS %[1]ssitemeta (
		meta_key   TEXT PRIMARY KEY,
		meta_value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS %[1]sblog_options (
		blog_id      INTEGER NOT NULL,
		option_name  TEXT NOT NULL,
		option_value TEXT NOT NULL,
		PRIMARY KEY (blog_id, option_name)
	);
	CREATE TABLE IF NOT EXISTS %[1]susermeta (
		user_id    INTEGER NOT NULL,
		meta_key   TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (user_id, meta_key)
	);`, b.prefix)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}
	return b, nil
}

// Close releases the underlying database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Adapter returns the adapter serving sc.
func (b *SQLiteBackend) Adapter(sc Context) Adapter {
	return &sqliteAdapter{backend: b, sc: sc}
}

func (b *SQLiteBackend) logError(op string, err error) {
	if b.logger == nil || err == nil {
		return
	}
	b.logger.Error("settings storage failure", slog.String("op", op), slog.Any("error", err))
}

type sqliteAdapter struct {
	backend *SQLiteBackend
	sc      Context
}

func (a *sqliteAdapter) Read(ctx context.Context, mainKey string) (map[string]any, bool) {
	query, args := a.readQuery(mainKey)
	var payload []byte
	err := a.backend.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		a.backend.logError("read", err)
		return nil, false
	}
	values, err := codec.DecodeValues(payload)
	if err != nil {
		a.backend.logError("read", err)
		return nil, false
	}
	return values, true
}

func (a *sqliteAdapter) Create(ctx context.Context, mainKey string, values map[string]any, autoload bool) bool {
	payload, err := codec.EncodeValues(values)
	if err != nil {
		a.backend.logError("create", err)
		return false
	}
	query, args := a.createQuery(mainKey, payload, autoload)
	if _, err := a.backend.db.ExecContext(ctx, query, args...); err != nil {
		a.backend.logError("create", err)
		return false
	}
	return true
}

func (a *sqliteAdapter) Update(ctx context.Context, mainKey string, values map[string]any) bool {
	payload, err := codec.EncodeValues(values)
	if err != nil {
		a.backend.logError("update", err)
		return false
	}
	query, args := a.updateQuery(mainKey, payload)
	if _, err := a.backend.db.ExecContext(ctx, query, args...); err != nil {
		a.backend.logError("update", err)
		return false
	}
	return true
}

func (a *sqliteAdapter) SupportsAutoload() bool {
	return a.sc.Scope() == ScopeSite
}

func (a *sqliteAdapter) Scope() Scope {
	return a.sc.Scope()
}

// rowName resolves the stored key: user-option rows get the backend prefix
// unless the context is global, every other scope stores the main key as is.
func (a *sqliteAdapter) rowName(mainKey string) string {
	if a.sc.Scope() == ScopeUser && a.sc.UserStorage() == UserStorageOption && !a.sc.UserGlobal() {
		return a.backend.prefix + mainKey
	}
	return mainKey
}

func (a *sqliteAdapter) readQuery(mainKey string) (string, []any) {
	p := a.backend.prefix
	switch a.sc.Scope() {
	case ScopeNetwork:
		return fmt.Sprintf("SELECT meta_value FROM %ssitemeta WHERE meta_key = ?", p),
			[]any{mainKey}
	case ScopeBlog:
		return fmt.Sprintf("SELECT option_value FROM %sblog_options WHERE blog_id = ? AND option_name = ?", p),
			[]any{a.sc.BlogID(), mainKey}
	case ScopeUser:
		return fmt.Sprintf("SELECT meta_value FROM %susermeta WHERE user_id = ? AND meta_key = ?", p),
			[]any{a.sc.UserID(), a.rowName(mainKey)}
	default:
		return fmt.Sprintf("SELECT option_value FROM %soptions WHERE option_name = ?", p),
			[]any{mainKey}
	}
}

func (a *sqliteAdapter) createQuery(mainKey string, payload []byte, autoload bool) (string, []any) {
	p := a.backend.prefix
	switch a.sc.Scope() {
	case ScopeNetwork:
		return fmt.Sprintf("INSERT INTO %ssitemeta (meta_key, meta_value) VALUES (?, ?)", p),
			[]any{mainKey, payload}
	case ScopeBlog:
		return fmt.Sprintf("INSERT INTO %sblog_options (blog_id, option_name, option_value) VALUES (?, ?, ?)", p),
			[]any{a.sc.BlogID(), mainKey, payload}
	case ScopeUser:
		return fmt.Sprintf("INSERT INTO %susermeta (user_id, meta_key, meta_value) VALUES (?, ?, ?)", p),
			[]any{a.sc.UserID(), a.rowName(mainKey), payload}
	default:
		flag := 0
		if autoload {
			flag = 1
		}
		return fmt.Sprintf("INSERT INTO %soptions (option_name, option_value, autoload) VALUES (?, ?, ?)", p),
			[]any{mainKey, payload, flag}
	}
}

func (a *sqliteAdapter) updateQuery(mainKey string, payload []byte) (string, []any) {
	p := a.backend.prefix
	switch a.sc.Scope() {
	case ScopeNetwork:
		return fmt.Sprintf("UPDATE %ssitemeta SET meta_value = ? WHERE meta_key = ?", p),
			[]any{payload, mainKey}
	case ScopeBlog:
		return fmt.Sprintf("UPDATE %sblog_options SET option_value = ? WHERE blog_id = ? AND option_name = ?", p),
			[]any{payload, a.sc.BlogID(), mainKey}
	case ScopeUser:
		return fmt.Sprintf("UPDATE %susermeta SET meta_value = ? WHERE user_id = ? AND meta_key = ?", p),
			[]any{payload, a.sc.UserID(), a.rowName(mainKey)}
	default:
		return fmt.Sprintf("UPDATE %soptions SET option_value = ? WHERE option_name = ?", p),
			[]any{payload, mainKey}
	}
}

// Autoload reports the autoload flag stored for a site-scoped row. Test and
// introspection helper; non-site scopes never carry the flag.
func (b *SQLiteBackend) Autoload(ctx context.Context, mainKey string) (bool, bool) {
	var flag int
	err := b.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT autoload FROM %soptions WHERE option_name = ?", b.prefix),
		mainKey,
	).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false
	}
	if err != nil {
		b.logError("autoload", err)
		return false, false
	}
	return flag == 1, true
}
