package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = 5 * time.Minute

// CacheObserver counts cache hits and misses.
type CacheObserver interface {
	ContentCache(hit bool)
}

// Cache keeps rendered public content in Redis. Each page has a generation
// counter; bumping it on publish orphans older entries, which expire by TTL.
type Cache struct {
	client   redis.UniversalClient
	ttl      time.Duration
	observer CacheObserver
	logger   *slog.Logger
	group    singleflight.Group
}

// NewCache constructs a cache. A nil client disables caching.
func NewCache(client redis.UniversalClient, ttl time.Duration, observer CacheObserver, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, observer: observer, logger: logger}
}

func generationKey(page Page) string {
	return "kirana:cms:gen:" + string(page)
}

func contentKey(page Page, gen int64) string {
	return fmt.Sprintf("kirana:cms:content:%s:%d", page, gen)
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ContentCache(hit)
	}
}

// Get returns the cached content for page, calling load at most once per
// key across concurrent misses. Redis failures fall through to load.
func (c *Cache) Get(ctx context.Context, page Page, load func(context.Context) (PublicContent, error)) (PublicContent, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	gen, err := c.client.Get(ctx, generationKey(page)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "cms cache generation read failed", slog.String("page", string(page)), slog.Any("error", err))
		return load(ctx)
	}
	key := contentKey(page, gen)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var pc PublicContent
		if err := json.Unmarshal(raw, &pc); err == nil {
			c.observe(true)
			return pc, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "cms cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	c.observe(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		pc, err := load(ctx)
		if err != nil {
			return PublicContent{}, err
		}
		if raw, err := json.Marshal(pc); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.WarnContext(ctx, "cms cache write failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		return pc, nil
	})
	if err != nil {
		return PublicContent{}, err
	}
	return v.(PublicContent), nil
}

// Invalidate bumps the page generation so the next read reloads.
func (c *Cache) Invalidate(ctx context.Context, page Page) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, generationKey(page)).Err()
}
