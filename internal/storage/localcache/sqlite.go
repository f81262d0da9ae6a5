package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"remotion_studio/internal/storage"
)

const sqliteTable = "fallback_cache"

// SQLiteCache persists fallback values in a single-file database so unsaved
// work survives a process restart.
type SQLiteCache struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteCache(ctx context.Context, path string, ttl time.Duration) (*SQLiteCache, error) {
	const op = "localcache.NewSQLiteCache"

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateSQLiteCache(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SQLiteCache{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		ttl: ttl,
		now: time.Now,
	}, nil
}

func migrateSQLiteCache(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + sqliteTable + ` (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL,
			expires_at_unixms INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteCache) Get(ctx context.Context, key string, dst any) error {
	const op = "localcache.SQLiteCache.Get"

	query, args, err := s.sb.Select("v", "expires_at_unixms").
		From(sqliteTable).
		Where(sq.Eq{"k": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var (
		raw       string
		expiresAt int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrorNoSuchKey
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if expiresAt > 0 && s.now().UnixMilli() > expiresAt {
		_ = s.Delete(ctx, key)
		return storage.ErrorNoSuchKey
	}

	return decode([]byte(raw), dst)
}

func (s *SQLiteCache) Set(ctx context.Context, key string, value any) error {
	const op = "localcache.SQLiteCache.Set"

	raw, err := encode(value)
	if err != nil {
		return err
	}

	now := s.now()
	var expiresAt int64
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl).UnixMilli()
	}

	query, args, err := s.sb.Insert(sqliteTable).
		Options("OR REPLACE").
		Columns("k", "v", "updated_at_unixms", "expires_at_unixms").
		Values(key, string(raw), now.UnixMilli(), expiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *SQLiteCache) Delete(ctx context.Context, keys ...string) error {
	const op = "localcache.SQLiteCache.Delete"

	if len(keys) == 0 {
		return nil
	}

	query, args, err := s.sb.Delete(sqliteTable).
		Where(sq.Eq{"k": keys}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
