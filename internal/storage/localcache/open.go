package localcache

import (
	"context"
	"fmt"

	"remotion_studio/internal/config"
	"remotion_studio/internal/storage"
	"remotion_studio/internal/storage/postgresql"
	redisapp "remotion_studio/internal/storage/redis"
)

// Open builds the cache driver named in the config.
func Open(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConf) (Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryCache(cfg.TTL), nil
	case "redis":
		client, err := redisapp.Connect(ctx, redisCfg.RedisAddr, redisCfg.RedisPassword, redisCfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return NewRedisCache(client, cfg.TTL), nil
	case "sqlite":
		return NewSQLiteCache(ctx, cfg.SQLitePath, cfg.TTL)
	case "postgres":
		pg, err := postgresql.New(ctx, cfg.PostgresDSN, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownCache, cfg.Driver)
	}
}
