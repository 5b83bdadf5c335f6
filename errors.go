package appstate

import "errors"

var (
	// ErrStorageKeyRequired indicates a storage backend was configured without
	// an explicit storage key. There is no implicit default key shared across
	// stores.
	ErrStorageKeyRequired = errors.New("appstate: storage key is required when storage is configured")
	// ErrStorageRequired indicates persisted keys were whitelisted without a
	// storage backend to write them to.
	ErrStorageRequired = errors.New("appstate: persisted keys require a storage backend")
	// ErrNotReady indicates an operation that needs a live snapshot ran before
	// the initial load resolved.
	ErrNotReady = errors.New("appstate: store is not ready")
	// ErrNoCondition indicates no watch condition engine is available.
	ErrNoCondition = errors.New("appstate: condition engine not configured")
	// ErrExpressionRequired indicates an empty watch expression.
	ErrExpressionRequired = errors.New("appstate: expression must not be empty")
)

var errMissingCondition = errors.New("compiled condition missing engine")
