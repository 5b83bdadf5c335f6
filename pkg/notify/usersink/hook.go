package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-appstate/pkg/notify"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// ObjectType identifies appstate stores inside activity records.
const ObjectType = "appstate.store"

// Hook adapts state events to a go-users ActivitySink, producing an audit
// trail of who changed which store.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event notify.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := notify.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.StoreID == "" || normalized.SnapshotID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.ActorID),
		Verb:       normalized.Verb,
		ObjectType: ObjectType,
		ObjectID:   normalized.StoreID,
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	record.Data["snapshot_id"] = normalized.SnapshotID
	if len(normalized.Keys) > 0 {
		record.Data["keys"] = append([]string{}, normalized.Keys...)
	}

	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
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
