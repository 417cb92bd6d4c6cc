package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ParseOptions accepts either host:port or a redis:// (rediss:// for TLS)
// URL and fills in the kirana timeouts where the URL leaves them unset.
func ParseOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("platform/cache: empty redis address")
	}
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("platform/cache: parse url: %w", err)
		}
		opts = parsed
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 3 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	return opts, nil
}

// AsynqOptions points the job queue at the same redis as the cache.
func AsynqOptions(opts *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		TLSConfig:    opts.TLSConfig,
	}
}

// New connects to redis at addr. A failed ping is returned together with the
// client; sessions and the content cache then fail per request instead of
// at startup.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := ParseOptions(addr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
