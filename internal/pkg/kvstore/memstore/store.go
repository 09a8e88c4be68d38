// Package memstore is an in-memory kvstore.Store used for development and tests.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/zeebo/errs"

	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// Store keeps all values in a map guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey.New("")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	return clone(value), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = clone(value)
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// List returns the sorted keys beginning with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.items {
		if kvstore.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// CompareAndSwap atomically replaces oldValue with newValue.
func (s *Store) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	if !ok {
		if oldValue != nil {
			return kvstore.ErrKeyNotFound.New("%q", key)
		}
		if newValue != nil {
			s.items[key] = clone(newValue)
		}
		return nil
	}

	if oldValue == nil || !bytes.Equal(current, oldValue) {
		return kvstore.ErrValueChanged.New("%q", key)
	}

	if newValue == nil {
		delete(s.items, key)
		return nil
	}
	s.items[key] = clone(newValue)
	return nil
}

// Ping always succeeds unless the store was closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errs.New("memstore: closed")
	}
	return nil
}

// Close marks the store closed. Data stays readable for tests.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func clone(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
