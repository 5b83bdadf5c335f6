// Package appstate implements a shared global-state container: an in-memory
// key/value snapshot with shallow-merge updates, optional whitelist
// persistence through a pluggable storage backend, and an explicit
// subscription interface for change notifications.
package appstate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-appstate/pkg/notify"
	"github.com/goliatone/go-appstate/pkg/storage"
	"github.com/google/uuid"
)

// Store holds one shared state snapshot for the lifetime of the process (or
// until the owner drops it). All consumers observe the same logical instance;
// no consumer owns any part of the state independently.
type Store struct {
	id  string
	cfg storeConfig

	mu         sync.Mutex
	phase      Phase
	state      State
	snapshotID string
	seq        uint64
	origins    map[string]Provenance
	subs       map[string]notify.Hook
	watchers   map[string]*watcher
	condition  Condition

	ready    chan struct{}
	loadOnce sync.Once
}

// New constructs a Store from the supplied options. The store starts in
// PhaseLoading with an empty snapshot; call Load to resolve the initial
// state. Configuring a storage backend without an explicit storage key is an
// error, as is whitelisting persisted keys without a backend.
func New(opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	if cfg.storage != nil && cfg.storageKey == "" {
		return nil, ErrStorageKeyRequired
	}
	if len(cfg.persistedKeys) > 0 && cfg.storage == nil {
		return nil, ErrStorageRequired
	}
	return &Store{
		id:       uuid.NewString(),
		cfg:      cfg,
		state:    State{},
		origins:  map[string]Provenance{},
		subs:     map[string]notify.Hook{},
		watchers: map[string]*watcher{},
		ready:    make(chan struct{}),
	}, nil
}

// ID returns the store's unique identifier, used as the object ID in emitted
// events.
func (s *Store) ID() string {
	return s.id
}

// Load resolves the initial snapshot and returns a clone of it. The first
// call reads the persisted payload (when a backend is configured), merges it
// over the initial state (persisted values win on key collisions), and
// transitions the store to PhaseReady exactly once. Read failures and
// malformed payloads are logged and degrade to the initial state; they never
// fail the load. Subsequent calls are no-ops returning the live snapshot.
func (s *Store) Load(ctx context.Context) State {
	s.loadOnce.Do(func() {
		s.resolveInitial(ctx)
	})
	return s.Snapshot()
}

func (s *Store) resolveInitial(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	snapID := uuid.NewString()
	now := time.Now()

	resolved := cloneState(s.cfg.initial)
	origins := make(map[string]Provenance, len(resolved))
	for key := range resolved {
		origins[key] = Provenance{Origin: OriginInitial, SnapshotID: snapID, UpdatedAt: now}
	}

	if s.cfg.storage != nil {
		start := time.Now()
		payload, ok, err := s.cfg.storage.GetItem(ctx, s.cfg.storageKey)
		if err == nil && ok && payload != "" {
			persisted, decodeErr := decodePersisted(payload)
			if decodeErr != nil {
				// A payload that does not parse as a state mapping counts as
				// a read failure: log and fall back to the initial state.
				err = &storage.ReadError{Key: s.cfg.storageKey, Err: decodeErr}
			} else {
				resolved = mergeSnapshots(resolved, persisted)
				for key := range persisted {
					origins[key] = Provenance{Origin: OriginPersisted, SnapshotID: snapID, UpdatedAt: now}
				}
			}
		}
		s.storageLogger().LogStorage(StorageLogEvent{
			Op:       "load",
			Key:      s.cfg.storageKey,
			StoreID:  s.id,
			Duration: time.Since(start),
			Err:      err,
		})
	}

	s.mu.Lock()
	s.state = resolved
	s.snapshotID = snapID
	s.seq++
	seq := s.seq
	s.origins = origins
	s.phase = PhaseReady
	s.mu.Unlock()
	close(s.ready)

	s.fanout(notify.VerbLoaded, snapID, seq, sortedKeys(resolved), cloneState(resolved))
}

// Ready reports whether the initial load has resolved.
func (s *Store) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Phase returns the store's lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Wait blocks until the initial load resolves or ctx is done. It is the
// supported way to sequence consumers after the one-way loading transition.
func (s *Store) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the value stored under key in the current snapshot.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.state[key]
	return value, ok
}

// Snapshot returns a deep clone of the current state. Mutating the result
// never affects the store.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// SnapshotID returns the identifier of the current snapshot. Empty until the
// initial load resolves.
func (s *Store) SnapshotID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotID
}

// Len reports the number of keys in the current snapshot.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state)
}

// Set shallow-merges partial onto the latest snapshot and commits the result
// as a new snapshot. Updates are totally ordered: the merge always reads the
// most recent snapshot, never a stale one. When a persistence whitelist is
// configured the new snapshot is filtered to whitelist keys present in it and
// written to storage asynchronously; write failures are logged, never
// returned. done, when non-nil, is invoked synchronously with a clone of the
// full new snapshot before the call returns.
//
// Calling Set before the initial load resolves returns ErrNotReady.
func (s *Store) Set(partial State, done func(State)) error {
	if !s.Ready() {
		return ErrNotReady
	}

	s.mu.Lock()
	if len(partial) == 0 {
		snapshot := cloneState(s.state)
		s.mu.Unlock()
		if done != nil {
			done(snapshot)
		}
		return nil
	}

	snapID := uuid.NewString()
	now := time.Now()
	next := mergeSnapshots(s.state, partial)
	s.state = next
	s.snapshotID = snapID
	s.seq++
	seq := s.seq
	for key := range partial {
		s.origins[key] = Provenance{Origin: OriginUpdate, SnapshotID: snapID, UpdatedAt: now}
	}
	snapshot := cloneState(next)
	s.mu.Unlock()

	if done != nil {
		done(cloneState(snapshot))
	}

	if s.persistenceEnabled() {
		// Fire-and-forget: writes are not serialized relative to each other,
		// so storage reflects whichever write lands last.
		go s.persist(context.Background(), snapshot)
	}

	s.fanout(notify.VerbChanged, snapID, seq, sortedKeys(partial), snapshot)
	return nil
}

// current reads the live snapshot together with its identifiers in one
// critical section, so callers observe a consistent (snapshot, ID, seq)
// triple.
func (s *Store) current() (State, string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state), s.snapshotID, s.seq
}

func sortedKeys(state State) []string {
	if len(state) == 0 {
		return nil
	}
	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
