// Package storelogger wraps a kvstore.Store and logs every call at debug level.
package storelogger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// Logger implements kvstore.Store by delegating to store.
type Logger struct {
	log   zerolog.Logger
	store kvstore.Store
}

// New creates a logging decorator around store.
func New(log zerolog.Logger, store kvstore.Store) *Logger {
	return &Logger{
		log:   log.With().Str("component", "kvstore").Logger(),
		store: store,
	}
}

// Unwrap returns the decorated store.
func (l *Logger) Unwrap() kvstore.Store {
	return l.store
}

// Get logs and forwards.
func (l *Logger) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := l.store.Get(ctx, key)
	l.log.Debug().Str("op", "Get").Str("key", key).Int("valueLength", len(value)).
		Dur("took", time.Since(start)).Err(err).Msg("kvstore call")
	return value, err
}

// Set logs and forwards.
func (l *Logger) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := l.store.Set(ctx, key, value)
	l.log.Debug().Str("op", "Set").Str("key", key).Int("valueLength", len(value)).
		Bytes("truncatedValue", truncate(value)).Dur("took", time.Since(start)).Err(err).Msg("kvstore call")
	return err
}

// Delete logs and forwards.
func (l *Logger) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := l.store.Delete(ctx, key)
	l.log.Debug().Str("op", "Delete").Str("key", key).Dur("took", time.Since(start)).Err(err).Msg("kvstore call")
	return err
}

// List logs and forwards.
func (l *Logger) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := l.store.List(ctx, prefix)
	l.log.Debug().Str("op", "List").Str("prefix", prefix).Int("count", len(keys)).
		Dur("took", time.Since(start)).Err(err).Msg("kvstore call")
	return keys, err
}

// CompareAndSwap logs and forwards.
func (l *Logger) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) error {
	start := time.Now()
	err := l.store.CompareAndSwap(ctx, key, oldValue, newValue)
	l.log.Debug().Str("op", "CompareAndSwap").Str("key", key).
		Int("oldValueLength", len(oldValue)).Int("newValueLength", len(newValue)).
		Bytes("truncatedNewValue", truncate(newValue)).
		Dur("took", time.Since(start)).Err(err).Msg("kvstore call")
	return err
}

// Ping logs and forwards.
func (l *Logger) Ping(ctx context.Context) error {
	err := l.store.Ping(ctx)
	l.log.Debug().Str("op", "Ping").Err(err).Msg("kvstore call")
	return err
}

// Close logs and forwards.
func (l *Logger) Close() error {
	l.log.Debug().Str("op", "Close").Msg("kvstore call")
	return l.store.Close()
}

func truncate(v []byte) []byte {
	if len(v) <= 32 {
		return v
	}
	return v[:32]
}
