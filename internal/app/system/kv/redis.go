// internal/app/system/kv/redis.go
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Clients holds the Redis connections used by the dashboard. Commands and
// pub/sub use separate connections so a blocked subscriber never delays
// rate-limit counters.
//
// A nil *Clients is valid: every method degrades to a no-op, which is how
// the app runs when redis_url is not configured.
type Clients struct {
	Cmd    *redis.Client
	PubSub *redis.Client
}

// Connect parses redisURL, opens both connections and pings them.
// An empty URL returns (nil, nil).
func Connect(ctx context.Context, redisURL string) (*Clients, error) {
	if redisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	cmd := redis.NewClient(opt)
	if err := cmd.Ping(ctx).Err(); err != nil {
		_ = cmd.Close()
		return nil, fmt.Errorf("ping redis (cmd): %w", err)
	}

	psOpt := *opt
	ps := redis.NewClient(&psOpt)
	if err := ps.Ping(ctx).Err(); err != nil {
		_ = cmd.Close()
		_ = ps.Close()
		return nil, fmt.Errorf("ping redis (pubsub): %w", err)
	}

	return &Clients{Cmd: cmd, PubSub: ps}, nil
}

// ValidateURL checks that redisURL parses. Empty is allowed.
func ValidateURL(redisURL string) error {
	if redisURL == "" {
		return nil
	}
	_, err := redis.ParseURL(redisURL)
	return err
}

// Available reports whether Redis is configured.
func (c *Clients) Available() bool {
	return c != nil && c.Cmd != nil
}

// Ping checks the command connection.
func (c *Clients) Ping(ctx context.Context) error {
	if !c.Available() {
		return nil
	}
	return c.Cmd.Ping(ctx).Err()
}

// Close closes both connections.
func (c *Clients) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Cmd != nil {
		errs = append(errs, c.Cmd.Close())
	}
	if c.PubSub != nil {
		errs = append(errs, c.PubSub.Close())
	}
	return errors.Join(errs...)
}

// AllowRate counts one hit against key in a fixed window and reports
// whether the count is still within limit. Without Redis it always allows.
func (c *Clients) AllowRate(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	if !c.Available() {
		return true, 0, nil
	}
	pipe := c.Cmd.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// Del removes keys, best effort.
func (c *Clients) Del(ctx context.Context, keys ...string) {
	if !c.Available() || len(keys) == 0 {
		return
	}
	_ = c.Cmd.Del(ctx, keys...).Err()
}

// Publish sends payload on channel.
func (c *Clients) Publish(ctx context.Context, channel, payload string) error {
	if !c.Available() {
		return nil
	}
	return c.Cmd.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription on the pub/sub connection. The caller
// must Close the returned PubSub. Returns nil without Redis.
func (c *Clients) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if c == nil || c.PubSub == nil {
		return nil
	}
	return c.PubSub.Subscribe(ctx, channel)
}
