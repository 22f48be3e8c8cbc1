package settings

import (
	"fmt"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsLogger counts gate decisions and persistence outcomes in a
// VictoriaMetrics set. Observational only; pair it with another Logger via
// TeeLogger when log records are wanted too.
type MetricsLogger struct {
	set *vmetrics.Set
}

// NewMetricsLogger records into the supplied set, or the package default set
// when nil.
func NewMetricsLogger(set *vmetrics.Set) *MetricsLogger {
	return &MetricsLogger{set: set}
}

func (m *MetricsLogger) counter(name string) *vmetrics.Counter {
	if m.set != nil {
		return m.set.GetOrCreateCounter(name)
	}
	return vmetrics.GetOrCreateCounter(name)
}

func (m *MetricsLogger) LogGate(event GateEvent) {
	outcome := "denied"
	if event.Allowed {
		outcome = "allowed"
	}
	m.counter(fmt.Sprintf(`settings_gate_total{op=%q,scope=%q,outcome=%q}`,
		event.Op, event.Scope, outcome)).Inc()
}

func (m *MetricsLogger) LogPersist(event PersistEvent) {
	outcome := "failure"
	if event.OK {
		outcome = "success"
	}
	m.counter(fmt.Sprintf(`settings_persist_total{op=%q,scope=%q,outcome=%q}`,
		event.Op, event.Scope, outcome)).Inc()
}

func (m *MetricsLogger) LogSchema(event SchemaEvent) {
	outcome := "ok"
	if event.Err != nil {
		outcome = "error"
	}
	m.counter(fmt.Sprintf(`settings_schema_total{action=%q,outcome=%q}`,
		event.Action, outcome)).Inc()
}

// TeeLogger fans events out to multiple loggers in order.
func TeeLogger(loggers ...Logger) Logger {
	filtered := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			filtered = append(filtered, l)
		}
	}
	return teeLogger{loggers: filtered}
}

type teeLogger struct {
	loggers []Logger
}

func (t teeLogger) LogGate(event GateEvent) {
	for _, l := range t.loggers {
		l.LogGate(event)
	}
}

func (t teeLogger) LogPersist(event PersistEvent) {
	for _, l := range t.loggers {
		l.LogPersist(event)
	}
}

func (t teeLogger) LogSchema(event SchemaEvent) {
	for _, l := range t.loggers {
		l.LogSchema(event)
	}
}
