package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Yates-Labs/carebridge/internal/logging"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "carebridge:websearch:"

// CachedSearcher serves repeated queries from Redis. Only non-empty result
// sets are stored, so a transient provider failure is never cached. Redis
// errors are logged and fall through to the wrapped searcher.
type CachedSearcher struct {
	next   Searcher
	redis  *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSearcher wraps next with a Redis cache entry per (query, limit).
func NewCachedSearcher(next Searcher, redis *goredis.Client, ttl time.Duration, logger *zap.Logger) *CachedSearcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedSearcher{
		next:   next,
		redis:  redis,
		ttl:    ttl,
		logger: logging.OrNop(logger),
	}
}

func cacheKey(query string, limit int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d|%s", limit, query)))
	return cacheKeyPrefix + hex.EncodeToString(hash[:])
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	key := cacheKey(query, limit)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []Result
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			c.logger.Debug("web search cache hit", zap.String("query", query), zap.Int("results", len(cached)))
			return cached, nil
		}
		c.logger.Warn("dropping corrupt web search cache entry", zap.String("key", key))
		_ = c.redis.Del(ctx, key).Err()
	case errors.Is(err, goredis.Nil):
		c.logger.Debug("web search cache miss", zap.String("query", query))
	default:
		c.logger.Warn("web search cache unavailable", zap.Error(err))
	}

	results, err := c.next.Search(ctx, query, limit)
	if err != nil || len(results) == 0 {
		return results, err
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return results, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache web search results", zap.Error(err))
	}
	return results, nil
}
