// Package cache stores computed leaderboard and feed pages.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"example.com/activitystats/internal/domain"
	"example.com/activitystats/internal/observability"
)

const (
	defaultTTL    = 30 * time.Second
	defaultPrefix = "activity-stats"
)

// Noop is a PageCache that never hits.
type Noop struct{}

func (Noop) Generation(context.Context) (domain.CacheGeneration, error) { return 0, nil }

func (Noop) GetLeaderboard(context.Context, domain.CacheGeneration, domain.LeaderboardQuery) (domain.Leaderboard, bool, error) {
	return domain.Leaderboard{}, false, nil
}

func (Noop) SetLeaderboard(context.Context, domain.CacheGeneration, domain.LeaderboardQuery, domain.Leaderboard) error {
	return nil
}

func (Noop) GetFeed(context.Context, domain.CacheGeneration, domain.FeedQuery) (domain.Feed, bool, error) {
	return domain.Feed{}, false, nil
}

func (Noop) SetFeed(context.Context, domain.CacheGeneration, domain.FeedQuery, domain.Feed) error {
	return nil
}

func (Noop) Invalidate(context.Context) error { return nil }

// Redis caches pages as JSON under a generation-scoped key. Invalidate bumps the
// generation so stale pages are never read again and expire on their own TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a Redis cache.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl, prefix: defaultPrefix}
}

// NewRedisFromURL parses a redis:// URL and verifies connectivity.
func NewRedisFromURL(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

// Generation implements domain.PageCache.
func (c *Redis) Generation(ctx context.Context) (domain.CacheGeneration, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return domain.CacheGeneration(gen), err
}

// GetLeaderboard implements domain.PageCache.
func (c *Redis) GetLeaderboard(ctx context.Context, gen domain.CacheGeneration, q domain.LeaderboardQuery) (domain.Leaderboard, bool, error) {
	var board domain.Leaderboard
	ok, err := c.get(ctx, "leaderboard", c.scoped(gen, leaderboardKey(q)), &board)
	return board, ok, err
}

// SetLeaderboard implements domain.PageCache.
func (c *Redis) SetLeaderboard(ctx context.Context, gen domain.CacheGeneration, q domain.LeaderboardQuery, board domain.Leaderboard) error {
	return c.set(ctx, c.scoped(gen, leaderboardKey(q)), board)
}

// GetFeed implements domain.PageCache.
func (c *Redis) GetFeed(ctx context.Context, gen domain.CacheGeneration, q domain.FeedQuery) (domain.Feed, bool, error) {
	var feed domain.Feed
	ok, err := c.get(ctx, "feed", c.scoped(gen, feedKey(q)), &feed)
	return feed, ok, err
}

// SetFeed implements domain.PageCache.
func (c *Redis) SetFeed(ctx context.Context, gen domain.CacheGeneration, q domain.FeedQuery, feed domain.Feed) error {
	return c.set(ctx, c.scoped(gen, feedKey(q)), feed)
}

// Invalidate implements domain.PageCache.
func (c *Redis) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) get(ctx context.Context, kind, key string, out any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordCacheLookup(kind, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", kind, err)
	}
	observability.RecordCacheLookup(kind, true)
	return true, nil
}

func (c *Redis) set(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, body, c.ttl).Err()
}

func (c *Redis) generationKey() string {
	return c.prefix + ":generation"
}

func (c *Redis) scoped(gen domain.CacheGeneration, key string) string {
	return c.prefix + ":" + strconv.FormatInt(int64(gen), 10) + ":" + key
}

func leaderboardKey(q domain.LeaderboardQuery) string {
	return strings.Join([]string{"leaderboard", string(q.Dimension), pageKey(q.Page), boxKey(q.Box)}, ":")
}

func feedKey(q domain.FeedQuery) string {
	return strings.Join([]string{"feed", pageKey(q.Page), boxKey(q.Box)}, ":")
}

func pageKey(p domain.PageRequest) string {
	return strconv.Itoa(p.Page) + "x" + strconv.Itoa(p.Limit)
}

func boxKey(box *domain.BoundingBox) string {
	if box == nil {
		return "world"
	}
	parts := []float64{box.MinLat, box.MaxLat, box.MinLng, box.MaxLng}
	out := make([]string, len(parts))
	for i, v := range parts {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}
