// Package redis implements kvstore.Store on top of Redis.
package redis

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"

	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// Error is a redis error.
var Error = errs.Class("redis")

// Options configures the client.
type Options struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// Client is a kvstore.Store backed by a redis database. All keys are stored
// with Namespace prepended.
type Client struct {
	db        *goredis.Client
	namespace string
}

// OpenClient connects to redis and verifies the connection with a ping.
func OpenClient(ctx context.Context, opts Options) (*Client, error) {
	db := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, Error.New("ping failed: %v", err)
	}

	return &Client{db: db, namespace: opts.Namespace}, nil
}

// Raw exposes the underlying go-redis client so other components (the event
// bus) can share the connection pool.
func (client *Client) Raw() *goredis.Client {
	return client.db
}

// Get returns the value for key.
func (client *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey.New("")
	}
	return get(ctx, client.db, client.ns(key))
}

// Set stores value under key without expiration.
func (client *Client) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	return put(ctx, client.db, client.ns(key), value)
}

// Delete removes key.
func (client *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	return del(ctx, client.db, client.ns(key))
}

// List scans for keys beginning with prefix. SCAN may return duplicates, so
// results are deduplicated before sorting.
func (client *Client) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(client.ns(prefix)) + "*"
	it := client.db.Scan(ctx, 0, pattern, 100).Iterator()

	seen := make(map[string]struct{})
	for it.Next(ctx) {
		key := strings.TrimPrefix(it.Val(), client.namespace)
		seen[key] = struct{}{}
	}
	if err := it.Err(); err != nil {
		return nil, Error.New("scan error: %v", err)
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// CompareAndSwap uses WATCH/MULTI so the write only happens if the key was not
// modified between the read and the transaction.
func (client *Client) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	nsKey := client.ns(key)

	txf := func(tx *goredis.Tx) error {
		value, err := get(ctx, tx, nsKey)
		if kvstore.ErrKeyNotFound.Has(err) {
			if oldValue != nil {
				return kvstore.ErrKeyNotFound.New("%q", key)
			}
			if newValue == nil {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				return put(ctx, pipe, nsKey, newValue)
			})
			return err
		}
		if err != nil {
			return err
		}

		if oldValue == nil || !bytes.Equal(value, oldValue) {
			return kvstore.ErrValueChanged.New("%q", key)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if newValue == nil {
				return del(ctx, pipe, nsKey)
			}
			return put(ctx, pipe, nsKey, newValue)
		})
		return err
	}

	err := client.db.Watch(ctx, txf, nsKey)
	if errors.Is(err, goredis.TxFailedErr) {
		return kvstore.ErrValueChanged.New("%q", key)
	}
	if kvstore.ErrKeyNotFound.Has(err) || kvstore.ErrValueChanged.Has(err) {
		return err
	}
	return Error.Wrap(err)
}

// Ping checks the connection.
func (client *Client) Ping(ctx context.Context) error {
	return Error.Wrap(client.db.Ping(ctx).Err())
}

// Close closes the connection pool.
func (client *Client) Close() error {
	return client.db.Close()
}

func (client *Client) ns(key string) string {
	return client.namespace + key
}

func get(ctx context.Context, cmdable goredis.Cmdable, key string) ([]byte, error) {
	value, err := cmdable.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		return nil, Error.New("get error: %v", err)
	}
	return value, errs.Wrap(err)
}

func put(ctx context.Context, cmdable goredis.Cmdable, key string, value []byte) error {
	err := cmdable.Set(ctx, key, value, 0).Err()
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		return Error.New("put error: %v", err)
	}
	return errs.Wrap(err)
}

func del(ctx context.Context, cmdable goredis.Cmdable, key string) error {
	err := cmdable.Del(ctx, key).Err()
	if err != nil && !errors.Is(err, goredis.TxFailedErr) {
		return Error.New("delete error: %v", err)
	}
	return errs.Wrap(err)
}

// escapeGlob escapes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
