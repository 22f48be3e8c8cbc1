package settings

import (
	"bytes"
	"strings"
	"testing"

	vmetrics "github.com/VictoriaMetrics/metrics"

	"github.com/goliatone/go-settings/gate"
	"github.com/goliatone/go-settings/storage"
)

func TestMetricsLoggerCountsOutcomes(t *testing.T) {
	set := vmetrics.NewSet()
	logger := NewMetricsLogger(set)

	logger.LogGate(GateEvent{Op: gate.OpStage, Scope: storage.ScopeSite, Allowed: true})
	logger.LogGate(GateEvent{Op: gate.OpStage, Scope: storage.ScopeSite, Allowed: true})
	logger.LogGate(GateEvent{Op: gate.OpStage, Scope: storage.ScopeSite, Allowed: false})
	logger.LogPersist(PersistEvent{Op: gate.OpPersist, Scope: storage.ScopeSite, OK: true})
	logger.LogSchema(SchemaEvent{Action: "register"})

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		`settings_gate_total{op="stage",scope="site",outcome="allowed"} 2`,
		`settings_gate_total{op="stage",scope="site",outcome="denied"} 1`,
		`settings_persist_total{op="persist",scope="site",outcome="success"} 1`,
		`settings_schema_total{action="register",outcome="ok"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, out)
		}
	}
}

func TestTeeLoggerFansOut(t *testing.T) {
	var first, second int
	logger := TeeLogger(
		LoggerFuncs{Gate: func(GateEvent) { first++ }},
		nil,
		LoggerFuncs{Gate: func(GateEvent) { second++ }},
	)

	logger.LogGate(GateEvent{})
	if first != 1 || second != 1 {
		t.Fatalf("expected both loggers notified, got %d/%d", first, second)
	}
}
