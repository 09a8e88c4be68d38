// Package kvstore defines the key-value backend used for entitlement records
// and, optionally, the student directory.
package kvstore

import (
	"context"
	"strings"

	"github.com/zeebo/errs"
)

var (
	// ErrKeyNotFound is returned when a key has no value.
	ErrKeyNotFound = errs.Class("key not found")

	// ErrEmptyKey is returned when an empty key is used.
	ErrEmptyKey = errs.Class("empty key")

	// ErrValueChanged is returned by CompareAndSwap when the stored value does not
	// match the expected old value.
	ErrValueChanged = errs.Class("value changed")
)

// Store is a minimal key-value backend.
//
// Get, Set and Delete carry no multi-key atomicity. CompareAndSwap is the only
// conditional write and is atomic for a single key.
type Store interface {
	// Get returns the value for key or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// CompareAndSwap replaces oldValue with newValue atomically.
	// A nil oldValue requires the key to be absent; a nil newValue deletes the key.
	CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Lookup wraps Get into the (value, found) form. Only backend failures are
// returned as errors.
func Lookup(ctx context.Context, store Store, key string) ([]byte, bool, error) {
	value, err := store.Get(ctx, key)
	if ErrKeyNotFound.Has(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// IsBackendError reports whether err is a transport or server failure rather
// than one of the store's semantic errors.
func IsBackendError(err error) bool {
	if err == nil {
		return false
	}
	return !ErrKeyNotFound.Has(err) && !ErrValueChanged.Has(err) && !ErrEmptyKey.Has(err)
}

// HasPrefix is a helper for backends that filter keys in process.
func HasPrefix(key, prefix string) bool {
	return prefix == "" || strings.HasPrefix(key, prefix)
}
