// Package audit fans settings mutation events out to subscriber hooks.
// Hooks are observational: the store never lets a hook failure affect a
// mutation's outcome.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes one committed settings mutation.
type Event struct {
	Verb       string
	WriteID    string
	MainKey    string
	Scope      string
	ActorID    string
	UserID     string
	TenantID   string
	Keys       []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized settings events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. Events missing a verb or main key are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.MainKey == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims whitespace, clones the mutable fields, and ensures a
// timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.WriteID = strings.TrimSpace(event.WriteID)
	normalized.MainKey = strings.TrimSpace(event.MainKey)
	normalized.Scope = strings.TrimSpace(event.Scope)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.Metadata = cloneMap(event.Metadata)
	if len(event.Keys) > 0 {
		normalized.Keys = append([]string{}, event.Keys...)
	} else {
		normalized.Keys = nil
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
