package appstate

import "time"

// StorageLogEvent describes one load or persist attempt against the storage
// backend. Err is nil on success.
type StorageLogEvent struct {
	Op       string // "load" or "persist"
	Key      string
	StoreID  string
	Duration time.Duration
	Err      error
}

// StorageLogger records storage events. Storage failures are logged through
// this interface and never propagated to callers.
type StorageLogger interface {
	LogStorage(StorageLogEvent)
}

// StorageLoggerFunc adapts a function to StorageLogger.
type StorageLoggerFunc func(StorageLogEvent)

// LogStorage implements StorageLogger.
func (f StorageLoggerFunc) LogStorage(event StorageLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopStorageLogger struct{}

func (noopStorageLogger) LogStorage(StorageLogEvent) {}

// WithStorageLogger attaches a storage logger to the store.
func WithStorageLogger(logger StorageLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.storageLogger = noopStorageLogger{}
			return
		}
		cfg.storageLogger = logger
	}
}

// ConditionLogEvent describes a watch expression evaluation for logging.
type ConditionLogEvent struct {
	Engine   string
	Expr     string
	StoreID  string
	Duration time.Duration
	Err      error
}

// ConditionLogger records condition evaluations.
type ConditionLogger interface {
	LogCondition(ConditionLogEvent)
}

// ConditionLoggerFunc adapts a function to ConditionLogger.
type ConditionLoggerFunc func(ConditionLogEvent)

// LogCondition implements ConditionLogger.
func (f ConditionLoggerFunc) LogCondition(event ConditionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopConditionLogger struct{}

func (noopConditionLogger) LogCondition(ConditionLogEvent) {}

// WithConditionLogger attaches a condition logger to the store.
func WithConditionLogger(logger ConditionLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.condLogger = noopConditionLogger{}
			return
		}
		cfg.condLogger = logger
	}
}

// NotifyLogEvent describes a hook fan-out whose delivery failed. Hook errors
// never propagate to the caller that committed the change.
type NotifyLogEvent struct {
	Verb       string
	StoreID    string
	SnapshotID string
	Err        error
}

// NotifyLogger records failed notification deliveries.
type NotifyLogger interface {
	LogNotify(NotifyLogEvent)
}

// NotifyLoggerFunc adapts a function to NotifyLogger.
type NotifyLoggerFunc func(NotifyLogEvent)

// LogNotify implements NotifyLogger.
func (f NotifyLoggerFunc) LogNotify(event NotifyLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopNotifyLogger struct{}

func (noopNotifyLogger) LogNotify(NotifyLogEvent) {}

// WithNotifyLogger attaches a notification logger to the store.
func WithNotifyLogger(logger NotifyLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.notifyLogger = noopNotifyLogger{}
			return
		}
		cfg.notifyLogger = logger
	}
}

func (s *Store) storageLogger() StorageLogger {
	if s.cfg.storageLogger != nil {
		return s.cfg.storageLogger
	}
	return noopStorageLogger{}
}

func (s *Store) conditionLogger() ConditionLogger {
	if s.cfg.condLogger != nil {
		return s.cfg.condLogger
	}
	return noopConditionLogger{}
}

func (s *Store) notifyLogger() NotifyLogger {
	if s.cfg.notifyLogger != nil {
		return s.cfg.notifyLogger
	}
	return noopNotifyLogger{}
}
