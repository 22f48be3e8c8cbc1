package gate

import (
	"testing"

	"github.com/goliatone/go-settings/storage"
)

func siteWrite(op Op) WriteContext {
	return NewWriteContext(op, "app_settings", storage.SiteContext())
}

func TestEvaluateOrderAndDecisions(t *testing.T) {
	wc := siteWrite(OpStage)

	ok, decision := Evaluate(AllowAll(), NewRegistry(), wc)
	if !ok || decision != DecisionAllowed {
		t.Fatalf("expected allow, got ok=%v decision=%v", ok, decision)
	}

	ok, decision = Evaluate(DenyAll(), NewRegistry(), wc)
	if ok || decision != DecisionPolicy {
		t.Fatalf("expected policy denial, got ok=%v decision=%v", ok, decision)
	}

	registry := NewRegistry().Subscribe(VetoFunc(func(WriteContext) bool { return false }))
	ok, decision = Evaluate(AllowAll(), registry, wc)
	if ok || decision != DecisionVeto {
		t.Fatalf("expected general veto denial, got ok=%v decision=%v", ok, decision)
	}

	registry = NewRegistry().SubscribeScoped(storage.ScopeSite,
		VetoFunc(func(WriteContext) bool { return false }))
	ok, decision = Evaluate(AllowAll(), registry, wc)
	if ok || decision != DecisionScopedVeto {
		t.Fatalf("expected scoped veto denial, got ok=%v decision=%v", ok, decision)
	}
}

func TestPolicyDenialShortCircuitsVetoes(t *testing.T) {
	called := false
	registry := NewRegistry().Subscribe(VetoFunc(func(WriteContext) bool {
		called = true
		return true
	}))

	Evaluate(DenyAll(), registry, siteWrite(OpStage))
	if called {
		t.Fatalf("expected vetoes skipped after policy denial")
	}
}

func TestGeneralVetoShortCircuitsScoped(t *testing.T) {
	scopedCalled := false
	registry := NewRegistry().
		Subscribe(VetoFunc(func(WriteContext) bool { return false })).
		SubscribeScoped(storage.ScopeSite, VetoFunc(func(WriteContext) bool {
			scopedCalled = true
			return true
		}))

	Evaluate(AllowAll(), registry, siteWrite(OpStage))
	if scopedCalled {
		t.Fatalf("expected scoped vetoes skipped after general denial")
	}
}

func TestVetoesShortCircuitOnFirstDenial(t *testing.T) {
	calls := []string{}
	vetoes := Vetoes{
		VetoFunc(func(WriteContext) bool { calls = append(calls, "a"); return true }),
		VetoFunc(func(WriteContext) bool { calls = append(calls, "b"); return false }),
		VetoFunc(func(WriteContext) bool { calls = append(calls, "c"); return true }),
	}

	if vetoes.Allow(siteWrite(OpStage)) {
		t.Fatalf("expected denial")
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

func TestScopedVetoOnlyConsultedForItsScope(t *testing.T) {
	registry := NewRegistry().SubscribeScoped(storage.ScopeBlog,
		VetoFunc(func(WriteContext) bool { return false }))

	if ok, _ := Evaluate(AllowAll(), registry, siteWrite(OpStage)); !ok {
		t.Fatalf("expected blog veto to leave site writes alone")
	}

	blogSC, err := storage.BlogContext(3)
	if err != nil {
		t.Fatalf("unexpected context error: %v", err)
	}
	blogWC := NewWriteContext(OpStage, "app_settings", blogSC)
	if ok, _ := Evaluate(AllowAll(), registry, blogWC); ok {
		t.Fatalf("expected blog veto to deny blog writes")
	}
}

func TestOpPolicyMatrix(t *testing.T) {
	policy := NewOpPolicy(map[Op]bool{
		OpMigrate: false,
		OpStage:   true,
	}, true)

	if policy.Allow(OpMigrate, siteWrite(OpMigrate)) {
		t.Fatalf("expected migrate denied by matrix")
	}
	if !policy.Allow(OpStage, siteWrite(OpStage)) {
		t.Fatalf("expected stage allowed by matrix")
	}
	if !policy.Allow(OpClear, siteWrite(OpClear)) {
		t.Fatalf("expected unlisted op to use the default")
	}
}

func TestWriteContextCarriesScopeDetails(t *testing.T) {
	sc, err := storage.UserContext(42, storage.UserStorageOption, true)
	if err != nil {
		t.Fatalf("unexpected context error: %v", err)
	}

	wc := NewWriteContext(OpStage, "profile", sc,
		WithKey("theme"),
		WithPayload(map[string]any{"theme": "dark"}),
	)
	if wc.ID == "" {
		t.Fatalf("expected write id assigned")
	}
	if wc.Scope != storage.ScopeUser || wc.UserID != 42 || !wc.UserGlobal {
		t.Fatalf("unexpected scope details: %+v", wc)
	}
	if wc.Key != "theme" || wc.Payload["theme"] != "dark" {
		t.Fatalf("unexpected mutation details: %+v", wc)
	}
}

func TestWithPayloadClonesInput(t *testing.T) {
	payload := map[string]any{"k": 1}
	wc := NewWriteContext(OpStage, "app_settings", storage.SiteContext(), WithPayload(payload))

	payload["k"] = 2
	if wc.Payload["k"] != 1 {
		t.Fatalf("expected payload detached from caller map, got %v", wc.Payload["k"])
	}
}
