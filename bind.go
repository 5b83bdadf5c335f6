package appstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-appstate/internal/hydrate"
	"github.com/goliatone/go-appstate/pkg/notify"
)

// BindOption configures a Binding.
type BindOption[T any] func(*bindConfig[T])

type bindConfig[T any] struct {
	decoderOpts []hydrate.DecoderOption[T]
}

// BindWithUseNumber decodes snapshot numbers as json.Number instead of
// float64.
func BindWithUseNumber[T any]() BindOption[T] {
	return func(cfg *bindConfig[T]) {
		cfg.decoderOpts = append(cfg.decoderOpts, hydrate.WithUseNumber[T]())
	}
}

// BindWithDisallowUnknownFields rejects snapshots containing keys the target
// struct does not declare.
func BindWithDisallowUnknownFields[T any]() BindOption[T] {
	return func(cfg *bindConfig[T]) {
		cfg.decoderOpts = append(cfg.decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
}

// BindWithValidator runs fn against every freshly hydrated value; a non-nil
// error keeps the previous value and is surfaced through Binding.Err.
func BindWithValidator[T any](fn func(*T) error) BindOption[T] {
	return func(cfg *bindConfig[T]) {
		if fn == nil {
			return
		}
		cfg.decoderOpts = append(cfg.decoderOpts, hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return fn(value)
		}))
	}
}

// Binding adapts the schemaless snapshot onto a typed consumer: every state
// key is decoded into the matching field of T, and the bound value is
// re-hydrated on every committed change. It is the typed-consumer analog of
// spreading state keys onto a wrapped component.
type Binding[T any] struct {
	store   *Store
	decoder *hydrate.Decoder[T]

	mu      sync.RWMutex
	value   T
	lastErr error
	lastSeq uint64

	cancel func()
}

// Bind hydrates T from the store's current snapshot and keeps the bound value
// current via a subscription. Callers own the returned Binding and should
// Cancel it when done.
func Bind[T any](s *Store, opts ...BindOption[T]) (*Binding[T], error) {
	if s == nil {
		return nil, fmt.Errorf("appstate: store is required")
	}
	cfg := bindConfig[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	b := &Binding[T]{
		store:   s,
		decoder: hydrate.NewDecoder(cfg.decoderOpts...),
	}

	// Subscribe before the first hydration so a merge committed while the
	// initial decode runs is never missed.
	_, cancel := s.Subscribe(notify.HookFunc(func(_ context.Context, event notify.Event) error {
		// Hydration failures keep the previous value; Err surfaces them.
		_ = b.rehydrate(event.Snapshot, event.SnapshotID, event.Seq)
		return nil
	}))
	b.cancel = cancel

	snapshot, snapshotID, seq := s.current()
	if err := b.rehydrate(snapshot, snapshotID, seq); err != nil {
		cancel()
		return nil, err
	}
	return b, nil
}

// rehydrate decodes snapshot into the bound value. Commits can reach the
// binding concurrently and out of order; seq orders them, and anything older
// than the last applied commit is dropped so a stale snapshot never overwrites
// a newer one.
func (b *Binding[T]) rehydrate(snapshot State, snapshotID string, seq uint64) error {
	if snapshot == nil {
		snapshot = State{}
	}
	value, err := b.decoder.Decode(hydrate.Context{
		StoreID:    b.store.ID(),
		SnapshotID: snapshotID,
	}, snapshot)
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.lastSeq {
		return nil
	}
	b.lastSeq = seq
	if err != nil {
		b.lastErr = err
		return err
	}
	b.value = value
	b.lastErr = nil
	return nil
}

// Value returns the most recently hydrated value.
func (b *Binding[T]) Value() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Err returns the error from the most recent hydration attempt, if any.
func (b *Binding[T]) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// Set delegates a partial update to the underlying store, so typed consumers
// carry the setter alongside the hydrated state.
func (b *Binding[T]) Set(partial State, done func(State)) error {
	return b.store.Set(partial, done)
}

// Cancel detaches the binding from the store. The last hydrated value remains
// readable.
func (b *Binding[T]) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
}
