package appstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// persistenceEnabled reports whether committed snapshots should be written to
// storage. Persistence requires both a backend and a non-empty whitelist.
func (s *Store) persistenceEnabled() bool {
	return s.cfg.storage != nil && len(s.cfg.persistedKeys) > 0
}

// persist filters snapshot to the whitelist and writes the encoded subset
// under the configured storage key. Failures are logged, never surfaced.
func (s *Store) persist(ctx context.Context, snapshot State) {
	start := time.Now()
	payload, err := encodePersisted(filterPersisted(snapshot, s.cfg.persistedKeys))
	if err == nil {
		err = s.cfg.storage.SetItem(ctx, s.cfg.storageKey, payload)
	}
	s.storageLogger().LogStorage(StorageLogEvent{
		Op:       "persist",
		Key:      s.cfg.storageKey,
		StoreID:  s.id,
		Duration: time.Since(start),
		Err:      err,
	})
}

// filterPersisted restricts snapshot to whitelist keys present in it. Keys
// absent from the snapshot are omitted, never written as null.
func filterPersisted(snapshot State, keys []string) State {
	subset := make(State, len(keys))
	for _, key := range keys {
		if value, ok := snapshot[key]; ok {
			subset[key] = value
		}
	}
	return subset
}

func encodePersisted(subset State) (string, error) {
	payload, err := json.Marshal(subset)
	if err != nil {
		return "", fmt.Errorf("appstate: encode persisted subset: %w", err)
	}
	return string(payload), nil
}

func decodePersisted(payload string) (State, error) {
	var state State
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("appstate: decode persisted payload: %w", err)
	}
	return state, nil
}
