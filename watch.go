package appstate

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-appstate/pkg/notify"
	"github.com/google/uuid"
)

// Subscribe registers hook for every committed change (and the one-time
// loaded event). It returns the subscription ID and a cancel function that
// removes the hook. Hook errors are logged, never propagated to writers.
func (s *Store) Subscribe(hook notify.Hook) (string, func()) {
	id := uuid.NewString()
	if hook == nil {
		return id, func() {}
	}
	s.mu.Lock()
	s.subs[id] = hook
	s.mu.Unlock()
	return id, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// watcher pairs a compiled watch expression with the hook to fire when the
// expression evaluates truthy against a new snapshot.
type watcher struct {
	id       string
	expr     string
	engine   string
	compiled CompiledCondition
	hook     notify.Hook
}

// Watch registers a conditional subscription: expr is compiled with the
// configured condition engine and evaluated against every committed snapshot;
// hook fires only when the result is truthy. Evaluation failures are logged
// and skipped, they never abort the commit.
func (s *Store) Watch(expr string, hook notify.Hook) (string, func(), error) {
	if expr == "" {
		return "", nil, ErrExpressionRequired
	}
	if hook == nil {
		return "", nil, fmt.Errorf("appstate: watch hook is required")
	}
	condition, err := s.resolveCondition()
	if err != nil {
		return "", nil, err
	}
	compiled, err := condition.Compile(expr)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	w := &watcher{
		id:       id,
		expr:     expr,
		engine:   conditionEngineName(condition),
		compiled: compiled,
		hook:     hook,
	}
	s.mu.Lock()
	s.watchers[id] = w
	s.mu.Unlock()
	return id, func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}, nil
}

func (s *Store) resolveCondition() (Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.condition != nil {
		return s.condition, nil
	}
	if s.cfg.condition != nil {
		s.condition = s.cfg.condition
		return s.condition, nil
	}
	var exprOpts []ExprConditionOption
	if cache := s.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := s.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	fallback := NewExprCondition(exprOpts...)
	if fallback == nil {
		return nil, ErrNoCondition
	}
	s.condition = fallback
	return fallback, nil
}

// fanout delivers a committed snapshot to configured hooks, subscribers, and
// watchers. It runs outside the store mutex.
func (s *Store) fanout(verb, snapshotID string, seq uint64, keys []string, snapshot State) {
	s.mu.Lock()
	hooks := make(notify.Hooks, 0, len(s.cfg.hooks)+len(s.subs))
	hooks = append(hooks, s.cfg.hooks...)
	for _, hook := range s.subs {
		hooks = append(hooks, hook)
	}
	watchers := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	event := notify.Event{
		Verb:       verb,
		StoreID:    s.id,
		SnapshotID: snapshotID,
		Seq:        seq,
		Keys:       keys,
		// Hooks may mutate what they receive; a deep clone keeps them from
		// reaching into the copy the persist goroutine is serializing.
		Snapshot:   cloneState(snapshot),
		OccurredAt: time.Now(),
	}

	if err := hooks.Notify(context.Background(), event); err != nil {
		s.notifyLogger().LogNotify(NotifyLogEvent{
			Verb:       verb,
			StoreID:    s.id,
			SnapshotID: snapshotID,
			Err:        err,
		})
	}

	for _, w := range watchers {
		s.runWatcher(w, event)
	}
}

func (s *Store) runWatcher(w *watcher, event notify.Event) {
	ctx := WatchContext{
		Snapshot: event.Snapshot,
		Changed:  event.Keys,
		StoreID:  s.id,
	}
	start := time.Now()
	result, err := w.compiled.Evaluate(ctx)
	s.conditionLogger().LogCondition(ConditionLogEvent{
		Engine:   w.engine,
		Expr:     w.expr,
		StoreID:  s.id,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return
	}
	if !isTruthy(result) {
		return
	}
	if hookErr := w.hook.Notify(context.Background(), event); hookErr != nil {
		s.notifyLogger().LogNotify(NotifyLogEvent{
			Verb:       event.Verb,
			StoreID:    s.id,
			SnapshotID: event.SnapshotID,
			Err:        hookErr,
		})
	}
}

func conditionEngineName(c Condition) string {
	if c == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", c) {
	case "*appstate.exprCondition":
		return "expr"
	case "*appstate.celCondition":
		return "cel"
	case "*appstate.jsCondition":
		return "js"
	default:
		return "custom"
	}
}

// isTruthy maps a condition result onto watch semantics: booleans as-is,
// numbers by non-zero, strings by non-empty, anything else by non-nil.
func isTruthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case int:
		return typed != 0
	case int32:
		return typed != 0
	case int64:
		return typed != 0
	case uint64:
		return typed != 0
	case float32:
		return typed != 0
	case float64:
		return typed != 0
	case string:
		return typed != ""
	default:
		return true
	}
}
