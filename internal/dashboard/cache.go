package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON views in Redis. A nil Cache or client turns every fetch
// into a direct load.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(parts ...string) string {
	return strings.Join(append([]string{"cargo", "dashboard"}, parts...), ":")
}

// errCacheDown marks Redis failures that should not fail the request.
var errCacheDown = errors.New("dashboard: cache unavailable")

// FetchJSON loads a cached value or populates it using the loader. Redis
// errors are returned wrapped in errCacheDown together with the loaded value
// already decoded into dest.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(payload, dest); jerr == nil {
			return nil
		}
	}
	var getErr error
	if err != nil && !errors.Is(err, redis.Nil) {
		getErr = err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	if getErr != nil {
		return errors.Join(errCacheDown, getErr)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return errors.Join(errCacheDown, err)
	}
	return nil
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
