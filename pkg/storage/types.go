package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyRequired indicates an empty storage key.
var ErrKeyRequired = errors.New("storage: key is required")

// Storage is an asynchronous-friendly key/value persistence contract. GetItem
// reports ok=false when no payload exists under key; that is not an error.
type Storage interface {
	GetItem(ctx context.Context, key string) (payload string, ok bool, err error)
	SetItem(ctx context.Context, key, payload string) error
}

// ReadError wraps a failure raised while loading a payload.
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("storage: read key=%q: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WriteError wraps a failure raised while persisting a payload.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("storage: write key=%q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapRead(key string, err error) error {
	if err == nil {
		return nil
	}
	var readErr *ReadError
	if errors.As(err, &readErr) {
		return err
	}
	return &ReadError{Key: key, Err: err}
}

func wrapWrite(key string, err error) error {
	if err == nil {
		return nil
	}
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		return err
	}
	return &WriteError{Key: key, Err: err}
}
