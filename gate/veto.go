package gate

import "github.com/goliatone/go-settings/storage"

// Veto inspects an intended mutation and reports whether it may proceed.
type Veto interface {
	Allow(wc WriteContext) bool
}

// VetoFunc allows plain functions to satisfy Veto.
type VetoFunc func(wc WriteContext) bool

// Allow dispatches to the underlying function.
func (fn VetoFunc) Allow(wc WriteContext) bool {
	if fn == nil {
		return true
	}
	return fn(wc)
}

// Vetoes evaluates an ordered set of vetoes, short-circuiting on the first
// denial. An empty set allows everything.
type Vetoes []Veto

// Allow ANDs the vetoes in subscription order.
func (v Vetoes) Allow(wc WriteContext) bool {
	for _, veto := range v {
		if veto == nil {
			continue
		}
		if !veto.Allow(wc) {
			return false
		}
	}
	return true
}

// Registry holds the externally subscribable veto lists: one general list
// consulted for every mutation, plus per-scope lists consulted afterwards.
type Registry struct {
	general Vetoes
	scoped  map[storage.Scope]Vetoes
}

// NewRegistry constructs an empty registry; everything is allowed until a
// veto subscribes.
func NewRegistry() *Registry {
	return &Registry{scoped: map[storage.Scope]Vetoes{}}
}

// Subscribe appends a general veto. Order of subscription is the order of
// evaluation.
func (r *Registry) Subscribe(veto Veto) *Registry {
	if veto != nil {
		r.general = append(r.general, veto)
	}
	return r
}

// SubscribeScoped appends a veto consulted only for mutations within scope.
func (r *Registry) SubscribeScoped(scope storage.Scope, veto Veto) *Registry {
	if veto == nil {
		return r
	}
	if r.scoped == nil {
		r.scoped = map[storage.Scope]Vetoes{}
	}
	r.scoped[scope] = append(r.scoped[scope], veto)
	return r
}

// Allow evaluates the general list, then the list keyed by the mutation's
// scope. Default allow when nothing subscribed.
func (r *Registry) Allow(wc WriteContext) bool {
	if r == nil {
		return true
	}
	if !r.general.Allow(wc) {
		return false
	}
	return r.scoped[wc.Scope].Allow(wc)
}

// Decision identifies which gate stage produced the final outcome.
type Decision string

const (
	// DecisionAllowed marks a mutation that passed every stage.
	DecisionAllowed Decision = "allowed"
	// DecisionPolicy marks a denial by the immutable write policy.
	DecisionPolicy Decision = "policy"
	// DecisionVeto marks a denial by a general veto.
	DecisionVeto Decision = "veto"
	// DecisionScopedVeto marks a denial by a scope-specific veto.
	DecisionScopedVeto Decision = "scoped_veto"
)

// Evaluate runs the full gate in order: policy, general vetoes, scoped
// vetoes. It reports whether the mutation may proceed and which stage
// decided.
func Evaluate(policy Policy, registry *Registry, wc WriteContext) (bool, Decision) {
	if policy != nil && !policy.Allow(wc.Op, wc) {
		return false, DecisionPolicy
	}
	if registry != nil {
		if !registry.general.Allow(wc) {
			return false, DecisionVeto
		}
		if !registry.scoped[wc.Scope].Allow(wc) {
			return false, DecisionScopedVeto
		}
	}
	return true, DecisionAllowed
}
