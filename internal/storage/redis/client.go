package redisapp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Client is the connection the redis fallback cache writes through.
type Client struct {
	*redis.Client
}

// Connect dials addr and pings it once, so a bad address fails at startup
// rather than on the first fallback write.
func Connect(ctx context.Context, addr, password string, db int) (*Client, error) {
	const op = "storage.redis.Connect"

	c := &Client{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// Wrap adopts an existing go-redis client, e.g. the one redismock hands out.
func Wrap(c *redis.Client) *Client {
	return &Client{Client: c}
}

func (c *Client) Close() error {
	return c.Client.Close()
}
