package usersink_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-appstate/pkg/notify"
	"github.com/goliatone/go-appstate/pkg/notify/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()

	event := notify.Event{
		Verb:       notify.VerbChanged,
		StoreID:    "settings",
		SnapshotID: "snap-1",
		ActorID:    actorID.String(),
		Channel:    "appstate",
		Keys:       []string{"theme", "volume"},
		Snapshot:   map[string]any{"theme": "dark", "volume": 7},
		Metadata: map[string]any{
			"source": "preferences-screen",
		},
		OccurredAt: now,
	}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != actorID {
		t.Fatalf("expected user %s got %s", actorID, record.UserID)
	}
	if record.Verb != notify.VerbChanged || record.ObjectType != usersink.ObjectType || record.ObjectID != "settings" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "appstate" {
		t.Fatalf("expected channel appstate got %q", record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["snapshot_id"] != "snap-1" {
		t.Fatalf("expected snapshot_id metadata got %v", record.Data["snapshot_id"])
	}
	if record.Data["source"] != "preferences-screen" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["source"])
	}
	keys, ok := record.Data["keys"].([]string)
	if !ok || !reflect.DeepEqual(keys, []string{"theme", "volume"}) {
		t.Fatalf("expected changed keys metadata got %v", record.Data["keys"])
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), notify.Event{Verb: notify.VerbChanged}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected incomplete event dropped, got %d records", len(sink.records))
	}
}

func TestHookNotifyNilSink(t *testing.T) {
	hook := usersink.Hook{}
	event := notify.Event{Verb: notify.VerbChanged, StoreID: "settings", SnapshotID: "snap-1"}
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("expected nil sink to be a no-op, got %v", err)
	}
}

func TestHookNotifyInvalidActorFallsBackToNilUUID(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	event := notify.Event{
		Verb:       notify.VerbLoaded,
		StoreID:    "settings",
		SnapshotID: "snap-1",
		ActorID:    "not-a-uuid",
	}
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected nil uuid for unparsable actor, got %s", sink.records[0].ActorID)
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	errSink := errors.New("sink down")
	hook := usersink.Hook{Sink: &recordingSink{err: errSink}}

	event := notify.Event{Verb: notify.VerbChanged, StoreID: "settings", SnapshotID: "snap-1"}
	if err := hook.Notify(context.Background(), event); !errors.Is(err, errSink) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
