package settings

import (
	"log/slog"

	"github.com/goliatone/go-settings/gate"
	"github.com/goliatone/go-settings/storage"
)

// GateEvent describes one gate consultation.
type GateEvent struct {
	WriteID  string
	Op       gate.Op
	MainKey  string
	Scope    storage.Scope
	Key      string
	Keys     []string
	Allowed  bool
	Decision gate.Decision
}

// PersistEvent describes one persistence attempt against the backend.
type PersistEvent struct {
	WriteID string
	Op      gate.Op
	MainKey string
	Scope   storage.Scope
	Created bool
	OK      bool
}

// SchemaEvent describes a schema registration or pipeline failure.
type SchemaEvent struct {
	Action string
	Key    string
	Err    error
}

// Logger receives structured records of gate decisions, persistence attempts
// and schema events. Purely observational; implementations must never affect
// control flow.
type Logger interface {
	LogGate(GateEvent)
	LogPersist(PersistEvent)
	LogSchema(SchemaEvent)
}

// LoggerFuncs adapts plain functions to Logger. Nil fields are skipped.
type LoggerFuncs struct {
	Gate    func(GateEvent)
	Persist func(PersistEvent)
	Schema  func(SchemaEvent)
}

func (l LoggerFuncs) LogGate(event GateEvent) {
	if l.Gate != nil {
		l.Gate(event)
	}
}

func (l LoggerFuncs) LogPersist(event PersistEvent) {
	if l.Persist != nil {
		l.Persist(event)
	}
}

func (l LoggerFuncs) LogSchema(event SchemaEvent) {
	if l.Schema != nil {
		l.Schema(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogGate(GateEvent)       {}
func (noopLogger) LogPersist(PersistEvent) {}
func (noopLogger) LogSchema(SchemaEvent)   {}

// NewSlogLogger adapts a slog.Logger into a settings Logger. A nil logger
// falls back to slog.Default.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{inner: logger}
}

type slogLogger struct {
	inner *slog.Logger
}

func (l slogLogger) LogGate(event GateEvent) {
	l.inner.Debug("settings gate decision",
		slog.String("write_id", event.WriteID),
		slog.String("op", string(event.Op)),
		slog.String("main_key", event.MainKey),
		slog.String("scope", event.Scope.String()),
		slog.String("key", event.Key),
		slog.Bool("allowed", event.Allowed),
		slog.String("decision", string(event.Decision)),
	)
}

func (l slogLogger) LogPersist(event PersistEvent) {
	l.inner.Info("settings persistence",
		slog.String("write_id", event.WriteID),
		slog.String("op", string(event.Op)),
		slog.String("main_key", event.MainKey),
		slog.String("scope", event.Scope.String()),
		slog.Bool("created", event.Created),
		slog.Bool("ok", event.OK),
	)
}

func (l slogLogger) LogSchema(event SchemaEvent) {
	if event.Err != nil {
		l.inner.Warn("settings schema event",
			slog.String("action", event.Action),
			slog.String("key", event.Key),
			slog.Any("error", event.Err),
		)
		return
	}
	l.inner.Debug("settings schema event",
		slog.String("action", event.Action),
		slog.String("key", event.Key),
	)
}
