package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/simp-lee/gamelib/internal/domain"
)

// Cache stores serialized search pages.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache on top of a go-redis client.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps rdb. Panics if rdb is nil.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	if rdb == nil {
		panic("catalog.NewRedisCache: redis client must not be nil")
	}
	return &RedisCache{rdb: rdb}
}

// Get returns the cached value; a missing key is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores value under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// CacheConfig tunes a CachedClient.
type CacheConfig struct {
	// TTL of a cached page. Defaults to 10 minutes.
	TTL time.Duration
	// Timeout bounds one shared backend lookup. Defaults to 10 seconds.
	Timeout time.Duration
	// Prefix namespaces the cache keys.
	Prefix string
}

// CachedClient memoizes search pages and collapses concurrent identical lookups.
// Cache failures are logged and the lookup falls through to the wrapped client.
type CachedClient struct {
	next    domain.SearchClient
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	prefix  string
	log     *slog.Logger
	group   singleflight.Group
}

var _ domain.SearchClient = (*CachedClient)(nil)

// NewCachedClient wraps next.
func NewCachedClient(next domain.SearchClient, cache Cache, cfg CacheConfig, log *slog.Logger) *CachedClient {
	if next == nil || cache == nil {
		panic("catalog.NewCachedClient: client and cache must not be nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedClient{next: next, cache: cache, ttl: cfg.TTL, timeout: cfg.Timeout, prefix: cfg.Prefix, log: log}
}

// Search implements domain.SearchClient.
func (c *CachedClient) Search(ctx context.Context, term string, page int) (*domain.SearchPage, error) {
	if strings.TrimSpace(term) == "" {
		return c.next.Search(ctx, term, page)
	}
	if page < 1 {
		page = 1
	}
	key := c.key(term, page)

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.WarnContext(ctx, "catalog cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if ok {
		var cached domain.SearchPage
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		c.log.WarnContext(ctx, "discarding corrupt catalog cache entry", slog.String("key", key))
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// The lookup is shared, so it must outlive the caller that started it.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		result, err := c.next.Search(lookupCtx, term, page)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(result); err == nil {
			if err := c.cache.Set(lookupCtx, key, raw, c.ttl); err != nil {
				c.log.WarnContext(lookupCtx, "catalog cache write failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, domain.NewAppError(domain.CodeUnavailable, unavailableMessage, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clonePage(res.Val.(*domain.SearchPage)), nil
	}
}

func (c *CachedClient) key(term string, page int) string {
	return fmt.Sprintf("%s:search:%s:%d", c.prefix, strings.ToLower(strings.TrimSpace(term)), page)
}

// clonePage gives each singleflight waiter its own copy.
func clonePage(p *domain.SearchPage) *domain.SearchPage {
	out := &domain.SearchPage{
		Results:    make([]domain.SearchResultItem, len(p.Results)),
		TotalCount: p.TotalCount,
	}
	for i, item := range p.Results {
		item.Platforms = append([]domain.Platform(nil), item.Platforms...)
		out.Results[i] = item
	}
	return out
}
