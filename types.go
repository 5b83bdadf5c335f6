package appstate

import (
	"time"

	"github.com/goliatone/go-appstate/pkg/notify"
	"github.com/goliatone/go-appstate/pkg/storage"
)

// State is the schemaless key/value mapping held by a Store. No shape is
// enforced; keys and value types are entirely caller-defined.
type State = map[string]any

// Phase identifies the lifecycle stage of a Store. The transition is one-way:
// a store moves from PhaseLoading to PhaseReady exactly once.
type Phase int

const (
	// PhaseLoading covers the window between construction and load resolution.
	PhaseLoading Phase = iota
	// PhaseReady means the initial load resolved and the snapshot is live.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// WatchContext carries inputs needed when evaluating a watch expression.
type WatchContext struct {
	Snapshot map[string]any
	Changed  []string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	StoreID  string
}

func (ctx WatchContext) withDefaultNow() WatchContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx WatchContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx WatchContext) withDefaultMaps() WatchContext {
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx WatchContext) storeLabel() string {
	if ctx.StoreID != "" {
		return ctx.StoreID
	}
	return "unknown"
}

// Condition executes watch expressions against a watch context.
type Condition interface {
	Evaluate(ctx WatchContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledCondition, error)
}

// CompiledCondition represents a reusable watch expression program.
type CompiledCondition interface {
	Evaluate(ctx WatchContext) (any, error)
}

// CompileOption configures condition compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a Store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	initial       State
	persistedKeys []string
	storage       storage.Storage
	storageKey    string
	condition     Condition
	programCache  ProgramCache
	functions     *FunctionRegistry
	storageLogger StorageLogger
	condLogger    ConditionLogger
	notifyLogger  NotifyLogger
	hooks         notify.Hooks
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithInitialState sets the state adopted when no persisted data exists. The
// map is cloned so later caller mutations do not leak into the store.
func WithInitialState(initial State) Option {
	return func(cfg *storeConfig) {
		cfg.initial = cloneState(initial)
	}
}

// WithPersistedKeys whitelists the state keys eligible for persistence. An
// empty whitelist disables persistence entirely.
func WithPersistedKeys(keys ...string) Option {
	return func(cfg *storeConfig) {
		cfg.persistedKeys = normalizeKeys(keys)
	}
}

// WithStorage attaches the persistence backend used for the initial load and
// for whitelist writes. A storage key must also be configured via
// WithStorageKey; there is no implicit default key.
func WithStorage(st storage.Storage) Option {
	return func(cfg *storeConfig) {
		cfg.storage = st
	}
}

// WithStorageKey names the record under which the persisted subset is filed.
func WithStorageKey(key string) Option {
	return func(cfg *storeConfig) {
		cfg.storageKey = key
	}
}

// WithCondition configures the engine used to evaluate watch expressions.
func WithCondition(condition Condition) Option {
	return func(cfg *storeConfig) {
		cfg.condition = condition
	}
}

// WithProgramCache registers a compiled-program cache shared by condition
// engines.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *storeConfig) {
		cfg.programCache = cache
	}
}

// WithHooks attaches notification hooks invoked on every committed change.
// Hooks are cloned and nil entries dropped.
func WithHooks(hooks notify.Hooks) Option {
	normalized := cloneHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.hooks = normalized
	}
}

func cloneHooks(hooks notify.Hooks) notify.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]notify.Hook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return notify.Hooks(normalized)
}

func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
