package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-appstate/pkg/notify"
)

func baseEvent() notify.Event {
	return notify.Event{
		Verb:       notify.VerbChanged,
		StoreID:    "store-1",
		SnapshotID: "snap-1",
		Keys:       []string{"count"},
		Snapshot:   map[string]any{"count": 3},
	}
}

func TestHooksNotifyFansOut(t *testing.T) {
	first := &notify.CaptureHook{}
	second := &notify.CaptureHook{}
	hooks := notify.Hooks{first, nil, second}

	if err := hooks.Notify(context.Background(), baseEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(first.Snapshot()) != 1 || len(second.Snapshot()) != 1 {
		t.Fatalf("expected both hooks notified, got %d and %d", len(first.Snapshot()), len(second.Snapshot()))
	}
}

func TestHooksNotifyJoinsErrors(t *testing.T) {
	errFirst := errors.New("first failed")
	failing := &notify.CaptureHook{Err: errFirst}
	healthy := &notify.CaptureHook{}

	err := notify.Hooks{failing, healthy}.Notify(context.Background(), baseEvent())
	if !errors.Is(err, errFirst) {
		t.Fatalf("expected joined error to contain hook failure, got %v", err)
	}
	if len(healthy.Snapshot()) != 1 {
		t.Fatalf("expected remaining hooks still notified, got %d", len(healthy.Snapshot()))
	}
}

func TestHooksNotifySkipsIncompleteEvents(t *testing.T) {
	capture := &notify.CaptureHook{}
	hooks := notify.Hooks{capture}

	incomplete := []notify.Event{
		{StoreID: "store-1", SnapshotID: "snap-1"},
		{Verb: notify.VerbChanged, SnapshotID: "snap-1"},
		{Verb: notify.VerbChanged, StoreID: "store-1"},
		{Verb: "  ", StoreID: "store-1", SnapshotID: "snap-1"},
	}
	for _, event := range incomplete {
		if err := hooks.Notify(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if got := len(capture.Snapshot()); got != 0 {
		t.Fatalf("expected incomplete events dropped, got %d deliveries", got)
	}
}

func TestHooksEnabled(t *testing.T) {
	if (notify.Hooks{}).Enabled() {
		t.Fatalf("expected empty hooks to be disabled")
	}
	if !(notify.Hooks{&notify.CaptureHook{}}).Enabled() {
		t.Fatalf("expected non-empty hooks to be enabled")
	}
}

func TestNormalizeEventClonesAndStamps(t *testing.T) {
	snapshot := map[string]any{"count": 3}
	keys := []string{"count"}
	event := notify.Event{
		Verb:       "  state.changed  ",
		StoreID:    " store-1 ",
		SnapshotID: " snap-1 ",
		Keys:       keys,
		Snapshot:   snapshot,
	}

	normalized := notify.NormalizeEvent(event)
	if normalized.Verb != notify.VerbChanged || normalized.StoreID != "store-1" || normalized.SnapshotID != "snap-1" {
		t.Fatalf("expected trimmed identifiers, got %+v", normalized)
	}
	if normalized.OccurredAt.IsZero() {
		t.Fatalf("expected timestamp to be stamped")
	}

	snapshot["count"] = 99
	keys[0] = "other"
	if normalized.Snapshot["count"] != 3 {
		t.Fatalf("expected snapshot cloned, got %v", normalized.Snapshot["count"])
	}
	if normalized.Keys[0] != "count" {
		t.Fatalf("expected keys cloned, got %v", normalized.Keys)
	}
}

func TestNormalizeEventKeepsExplicitTimestamp(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := baseEvent()
	event.OccurredAt = at
	if got := notify.NormalizeEvent(event).OccurredAt; !got.Equal(at) {
		t.Fatalf("expected timestamp preserved, got %v", got)
	}
}

func TestEmitterAppliesDefaultChannel(t *testing.T) {
	capture := &notify.CaptureHook{}
	emitter := notify.NewEmitter(notify.Hooks{capture}, notify.Config{Enabled: true})

	if !emitter.Enabled() {
		t.Fatalf("expected emitter enabled")
	}
	if err := emitter.Emit(context.Background(), baseEvent()); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Channel != "appstate" {
		t.Fatalf("expected default channel, got %q", events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &notify.CaptureHook{}
	emitter := notify.NewEmitter(notify.Hooks{capture}, notify.Config{Enabled: true, Channel: "audit"})

	event := baseEvent()
	event.Channel = "ops"
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got := capture.Snapshot()[0].Channel; got != "ops" {
		t.Fatalf("expected explicit channel preserved, got %q", got)
	}
}

func TestEmitterDisabled(t *testing.T) {
	capture := &notify.CaptureHook{}

	disabled := notify.NewEmitter(notify.Hooks{capture}, notify.Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected disabled emitter")
	}
	if err := disabled.Emit(context.Background(), baseEvent()); err != nil {
		t.Fatalf("emit: %v", err)
	}

	empty := notify.NewEmitter(nil, notify.Config{Enabled: true})
	if empty.Enabled() {
		t.Fatalf("expected emitter without hooks to be disabled")
	}

	if got := len(capture.Snapshot()); got != 0 {
		t.Fatalf("expected no deliveries, got %d", got)
	}
}
