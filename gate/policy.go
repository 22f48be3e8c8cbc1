package gate

// Policy is the non-overridable predicate consulted before any veto. It is
// fixed at store construction; external subscribers can only narrow the
// decision further, never widen it.
type Policy interface {
	Allow(op Op, wc WriteContext) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(op Op, wc WriteContext) bool

// Allow implements Policy.
func (f PolicyFunc) Allow(op Op, wc WriteContext) bool {
	if f == nil {
		return true
	}
	return f(op, wc)
}

// AllowAll returns the permissive default policy. Commit and seed paths stay
// exercisable unless a caller installs something stricter.
func AllowAll() Policy {
	return PolicyFunc(func(Op, WriteContext) bool { return true })
}

// DenyAll returns a policy refusing every mutation. Useful for read-only
// store instances and for tests asserting gate-first ordering.
func DenyAll() Policy {
	return PolicyFunc(func(Op, WriteContext) bool { return false })
}

// NewOpPolicy builds a policy from a per-operation decision matrix.
// Operations absent from the matrix fall back to defaultAllow.
func NewOpPolicy(matrix map[Op]bool, defaultAllow bool) Policy {
	decisions := make(map[Op]bool, len(matrix))
	for op, allowed := range matrix {
		decisions[op] = allowed
	}
	return PolicyFunc(func(op Op, _ WriteContext) bool {
		if allowed, ok := decisions[op]; ok {
			return allowed
		}
		return defaultAllow
	})
}
