package notify

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Verbs emitted by appstate stores.
const (
	// VerbLoaded marks the one-time transition from loading to ready.
	VerbLoaded = "state.loaded"
	// VerbChanged marks a committed merge producing a new snapshot.
	VerbChanged = "state.changed"
)

// Event describes a state occurrence that can be fanned out to hooks.
// IDs are stringly-typed to avoid coupling call sites to specific UUID types.
type Event struct {
	Verb       string
	StoreID    string
	SnapshotID string
	// Seq is a per-store monotonic commit counter. Snapshot IDs are opaque
	// and unordered; Seq is what consumers compare to order commits.
	Seq        uint64
	ActorID    string
	Channel    string
	Keys       []string
	Snapshot   map[string]any
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized state events.
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
// fail. It normalizes the event and short-circuits when required fields are
// missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.StoreID == "" || normalized.SnapshotID == "" {
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

// NormalizeEvent trims whitespace, clones the snapshot and metadata, and
// ensures a timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.StoreID = strings.TrimSpace(event.StoreID)
	normalized.SnapshotID = strings.TrimSpace(event.SnapshotID)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Snapshot = cloneMap(event.Snapshot)
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
