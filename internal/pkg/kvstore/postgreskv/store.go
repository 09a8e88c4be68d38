// Package postgreskv implements kvstore.Store on a single postgres table.
package postgreskv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeebo/errs"

	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// Error is a postgreskv error.
var Error = errs.Class("postgreskv")

const tableName = "kv_entries"

// Store keeps key/value pairs in the kv_entries table created by the
// migrations.
type Store struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// New wraps an existing pool. The pool is owned by the caller; Close does not
// close it.
func New(db *pgxpool.Pool) *Store {
	return &Store{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the value for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, kvstore.ErrEmptyKey.New("")
	}
	sql, args, err := s.sb.Select("value").From(tableName).Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var value []byte
	err = s.db.QueryRow(ctx, sql, args...).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	if err != nil {
		return nil, Error.New("get error: %v", err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	if value == nil {
		value = []byte{}
	}
	sql, args, err := s.sb.Insert(tableName).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return Error.Wrap(err)
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return Error.New("put error: %v", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}
	sql, args, err := s.sb.Delete(tableName).Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return Error.Wrap(err)
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return Error.New("delete error: %v", err)
	}
	return nil
}

// List returns the sorted keys beginning with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	query := s.sb.Select("key").From(tableName).OrderBy("key")
	if prefix != "" {
		query = query.Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, Error.Wrap(err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, Error.New("list error: %v", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, Error.Wrap(err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(err)
	}
	return keys, nil
}

// CompareAndSwap performs the swap with a single conditional statement so no
// explicit transaction is needed.
func (s *Store) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) error {
	if key == "" {
		return kvstore.ErrEmptyKey.New("")
	}

	if oldValue == nil {
		if newValue == nil {
			return s.requireAbsent(ctx, key)
		}
		sql, args, err := s.sb.Insert(tableName).
			Columns("key", "value", "updated_at").
			Values(key, newValue, time.Now()).
			Suffix("ON CONFLICT (key) DO NOTHING").
			ToSql()
		if err != nil {
			return Error.Wrap(err)
		}
		tag, err := s.db.Exec(ctx, sql, args...)
		if err != nil {
			return Error.New("cas insert error: %v", err)
		}
		if tag.RowsAffected() == 0 {
			return kvstore.ErrValueChanged.New("%q", key)
		}
		return nil
	}

	var (
		sql  string
		args []interface{}
		err  error
	)
	if newValue == nil {
		sql, args, err = s.sb.Delete(tableName).
			Where(squirrel.Eq{"key": key}).
			Where("value = ?", oldValue).
			ToSql()
	} else {
		sql, args, err = s.sb.Update(tableName).
			Set("value", newValue).
			Set("updated_at", time.Now()).
			Where(squirrel.Eq{"key": key}).
			Where("value = ?", oldValue).
			ToSql()
	}
	if err != nil {
		return Error.Wrap(err)
	}

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return Error.New("cas error: %v", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: distinguish a missing key from a changed one.
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	return kvstore.ErrValueChanged.New("%q", key)
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return Error.Wrap(s.db.Ping(ctx))
}

// Close is a no-op; the pool is closed by the server.
func (s *Store) Close() error {
	return nil
}

func (s *Store) requireAbsent(ctx context.Context, key string) error {
	_, err := s.Get(ctx, key)
	if kvstore.ErrKeyNotFound.Has(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return kvstore.ErrValueChanged.New("%q", key)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
