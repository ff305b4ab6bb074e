package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedProvider wraps a SearchProvider with a Redis read-through
// cache. Identical queries within the TTL are served from cache
// instead of hitting the search backend again.
type CachedProvider struct {
	inner SearchProvider
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedProvider(inner SearchProvider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("websearch:%s:%d", hex.EncodeToString(sum[:]), maxResults)
}

func (p *CachedProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := cacheKey(query, maxResults)

	cached, err := p.rdb.Get(ctx, key).Result()
	if err == nil {
		var results []Result
		if jsonErr := json.Unmarshal([]byte(cached), &results); jsonErr == nil {
			return results, nil
		}
		// Corrupt entry, fall through and refresh it.
	}

	results, err := p.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(results); jsonErr == nil {
		// Cache write failures are not fatal for the search itself.
		_ = p.rdb.Set(ctx, key, payload, p.ttl).Err()
	}
	return results, nil
}
