package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes full rankings. Get calls load on a miss.
type Cache interface {
	Get(ctx context.Context, key string, load func(context.Context) ([]Entry, error)) ([]Entry, error)
}

// RedisCache stores rankings in Redis for a short TTL. Concurrent misses
// for the same key share one load. Redis errors degrade to an uncached
// load rather than failing the request.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewRedisCache wraps client. prefix namespaces keys.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, log: logger, metrics: m}
}

func (c *RedisCache) Get(ctx context.Context, key string, load func(context.Context) ([]Entry, error)) ([]Entry, error) {
	full := c.prefix + key

	raw, err := c.client.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var out []Entry
		if err := json.Unmarshal(raw, &out); err == nil {
			c.metrics.LeaderboardCache(true)
			return out, nil
		}
		c.log.Warn("discarding undecodable leaderboard cache entry", zap.String("key", full))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("leaderboard cache read failed", zap.String("key", full), zap.Error(err))
	}
	c.metrics.LeaderboardCache(false)

	v, err, _ := c.group.Do(full, func() (any, error) {
		entries, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(entries); err == nil {
			if err := c.client.Set(ctx, full, data, c.ttl).Err(); err != nil {
				c.log.Warn("leaderboard cache write failed", zap.String("key", full), zap.Error(err))
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers truncate the slice; hand each one its own copy.
	shared := v.([]Entry)
	out := make([]Entry, len(shared))
	copy(out, shared)
	return out, nil
}

// cacheKey is stable for equal queries.
func cacheKey(scope Scope, q Query) string {
	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	return fmt.Sprintf("%s:%s:%s:%s|%s|%s|%s",
		scope, q.Type, strings.Join(statuses, ","),
		q.Region.State, q.Region.Zone, q.Region.District, q.Region.Block)
}
