package appstate

import (
	"encoding/json"
	"time"
)

// Origin identifies which step produced the current value of a key.
type Origin string

const (
	// OriginInitial means the value came from the caller-supplied initial state.
	OriginInitial Origin = "initial"
	// OriginPersisted means the value was loaded from storage at startup.
	OriginPersisted Origin = "persisted"
	// OriginUpdate means the value was written by a Set call after load.
	OriginUpdate Origin = "update"
)

// Provenance details how the current value of a key came to be.
type Provenance struct {
	Origin     Origin    `json:"origin"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Trace captures provenance information for a single key lookup.
type Trace struct {
	Key        string     `json:"key"`
	Found      bool       `json:"found"`
	Value      any        `json:"value,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// Trace reports the provenance of key in the current snapshot. Keys never
// written report Found=false with zero provenance.
func (s *Store) Trace(key string) Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.state[key]
	if !ok {
		return Trace{Key: key}
	}
	return Trace{
		Key:        key,
		Found:      true,
		Value:      cloneValue(value),
		Provenance: s.origins[key],
	}
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
