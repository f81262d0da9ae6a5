// Package postgresql keeps fallback values in a shared Postgres table, for
// studios that run several API instances against one backend.
package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"remotion_studio/internal/storage"
)

const (
	// tables
	cacheTable = "fallback_cache"
)

type Storage struct {
	db  *pgxpool.Pool
	sb  sq.StatementBuilderType
	ttl time.Duration
	now func() time.Time
}

func New(ctx context.Context, storagePath string, ttl time.Duration) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := pgxpool.Connect(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Storage{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		ttl: ttl,
		now: time.Now,
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *Storage) migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+cacheTable+` (
		k TEXT PRIMARY KEY,
		v JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ
	)`)
	return err
}

func (s *Storage) Stop() {
	s.db.Close()
}

func (s *Storage) Close() error {
	s.Stop()
	return nil
}

func (s *Storage) Get(ctx context.Context, key string, dst any) error {
	const op = "storage.postgresql.Get"

	query, args, err := s.sb.Select("v", "expires_at").
		From(cacheTable).
		Where(sq.Eq{"k": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var (
		raw       []byte
		expiresAt *time.Time
	)
	err = s.db.QueryRow(ctx, query, args...).Scan(&raw, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrorNoSuchKey
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if expiresAt != nil && s.now().After(*expiresAt) {
		_ = s.Delete(ctx, key)
		return storage.ErrorNoSuchKey
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidValue, err)
	}

	return nil
}

func (s *Storage) Set(ctx context.Context, key string, value any) error {
	const op = "storage.postgresql.Set"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidValue, err)
	}

	now := s.now()
	var expiresAt *time.Time
	if s.ttl > 0 {
		t := now.Add(s.ttl)
		expiresAt = &t
	}

	query, args, err := s.sb.Insert(cacheTable).
		Columns("k", "v", "updated_at", "expires_at").
		Values(key, raw, now, expiresAt).
		Suffix("ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	const op = "storage.postgresql.Delete"

	if len(keys) == 0 {
		return nil
	}

	query, args, err := s.sb.Delete(cacheTable).
		Where(sq.Eq{"k": keys}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
