package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activitystats/internal/domain"
	"example.com/activitystats/internal/persistence/memory"
)

type boardKey struct {
	gen domain.CacheGeneration
	q   domain.LeaderboardQuery
}

type feedKey struct {
	gen domain.CacheGeneration
	q   domain.FeedQuery
}

// countingCache is an in-memory PageCache that records lookups.
type countingCache struct {
	gen       domain.CacheGeneration
	boards    map[boardKey]domain.Leaderboard
	feeds     map[feedKey]domain.Feed
	hits      int
	misses    int
	readErr   error
	genErr    error
	beforeSet func()
}

func newCountingCache() *countingCache {
	return &countingCache{
		boards: make(map[boardKey]domain.Leaderboard),
		feeds:  make(map[feedKey]domain.Feed),
	}
}

func (c *countingCache) Generation(context.Context) (domain.CacheGeneration, error) {
	return c.gen, c.genErr
}

func (c *countingCache) GetLeaderboard(_ context.Context, gen domain.CacheGeneration, q domain.LeaderboardQuery) (domain.Leaderboard, bool, error) {
	if c.readErr != nil {
		return domain.Leaderboard{}, false, c.readErr
	}
	board, ok := c.boards[boardKey{gen, q}]
	c.record(ok)
	return board, ok, nil
}

func (c *countingCache) SetLeaderboard(_ context.Context, gen domain.CacheGeneration, q domain.LeaderboardQuery, board domain.Leaderboard) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.boards[boardKey{gen, q}] = board
	return nil
}

func (c *countingCache) GetFeed(_ context.Context, gen domain.CacheGeneration, q domain.FeedQuery) (domain.Feed, bool, error) {
	if c.readErr != nil {
		return domain.Feed{}, false, c.readErr
	}
	feed, ok := c.feeds[feedKey{gen, q}]
	c.record(ok)
	return feed, ok, nil
}

func (c *countingCache) SetFeed(_ context.Context, gen domain.CacheGeneration, q domain.FeedQuery, feed domain.Feed) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.feeds[feedKey{gen, q}] = feed
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.gen++
	return nil
}

func (c *countingCache) record(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func newService(t *testing.T, store *memory.Store, cache domain.PageCache) *domain.Service {
	t.Helper()
	return domain.NewService(newEngine(t, store), domain.NewRanker(store, nil), store, store, cache, nil)
}

func TestServiceRefreshStats(t *testing.T) {
	store := memory.NewStore()
	seedWeek(store)
	svc := newService(t, store, nil)
	ctx := context.Background()

	summaries, err := svc.RefreshStats(ctx, "owner-u", weekStart.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, summaries, len(domain.PeriodTypes))
	for i, pt := range domain.PeriodTypes {
		require.Equal(t, pt, summaries[i].PeriodType)
	}
	require.Equal(t, 2000.0, summaries[0].TotalDistanceMeters)
	require.Equal(t, 4500.0, summaries[1].TotalDistanceMeters)

	allTime, err := svc.AllTimeStats(ctx, "owner-u")
	require.NoError(t, err)
	require.NotNil(t, allTime)
	require.Equal(t, summaries[4].TotalDistanceMeters, allTime.TotalDistanceMeters)

	missing, err := svc.AllTimeStats(ctx, "owner-v")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestServiceStatsHistory(t *testing.T) {
	store := memory.NewStore()
	seedWeek(store)
	svc := newService(t, store, nil)
	ctx := context.Background()

	for _, ref := range []time.Time{weekStart, weekStart.AddDate(0, 0, 7), weekStart.AddDate(0, 0, -7)} {
		_, err := svc.ComputeStats(ctx, "owner-u", domain.PeriodWeekly, ref)
		require.NoError(t, err)
	}

	history, err := svc.StatsHistory(ctx, "owner-u", domain.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, weekStart.AddDate(0, 0, 7), history[0].PeriodStart)
	require.Equal(t, weekStart, history[1].PeriodStart)
	require.Equal(t, weekStart.AddDate(0, 0, -7), history[2].PeriodStart)

	_, err = svc.StatsHistory(ctx, "owner-u", domain.PeriodType("hourly"))
	require.ErrorIs(t, err, domain.ErrInvalidPeriodType)
}

func TestServiceLeaderboardCacheAside(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "alice", StartTime: weekStart, DistanceMeters: 100})
	cache := newCountingCache()
	svc := newService(t, store, cache)
	ctx := context.Background()
	q := domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 10, 100)}

	first, err := svc.Leaderboard(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 1, cache.misses)

	store.Put(domain.ActivityRecord{OwnerID: "bob", StartTime: weekStart, DistanceMeters: 500})
	cached, err := svc.Leaderboard(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 1, cache.hits)
	require.Equal(t, first, cached)

	require.NoError(t, svc.InvalidateCaches(ctx))
	fresh, err := svc.Leaderboard(ctx, q)
	require.NoError(t, err)
	require.Len(t, fresh.Entries, 2)
	require.Equal(t, "bob", fresh.Entries[0].Key)
}

func TestServiceCacheErrorsFallThrough(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "alice", StartTime: weekStart, DistanceMeters: 100})
	cache := newCountingCache()
	cache.readErr = errors.New("redis: connection refused")
	svc := newService(t, store, cache)
	ctx := context.Background()

	board, err := svc.Leaderboard(ctx, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 10, 100)})
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)

	feed, err := svc.CommunityFeed(ctx, domain.FeedQuery{Page: domain.NewPageRequest(1, 10, 100)})
	require.NoError(t, err)
	require.Len(t, feed.Records, 1)

	down := newCountingCache()
	down.genErr = errors.New("redis: connection refused")
	svc = newService(t, store, down)
	board, err = svc.Leaderboard(ctx, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 10, 100)})
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	require.Zero(t, down.hits+down.misses)
	require.Empty(t, down.boards)
}

func TestServicePageRankedBeforeInvalidateIsNotServed(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "alice", StartTime: weekStart, DistanceMeters: 100})
	cache := newCountingCache()
	svc := newService(t, store, cache)
	ctx := context.Background()
	q := domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 10, 100)}

	// A refresh lands between ranking and the cache write.
	cache.beforeSet = func() {
		cache.beforeSet = nil
		store.Put(domain.ActivityRecord{OwnerID: "bob", StartTime: weekStart, DistanceMeters: 500})
		require.NoError(t, svc.InvalidateCaches(ctx))
	}
	stale, err := svc.Leaderboard(ctx, q)
	require.NoError(t, err)
	require.Len(t, stale.Entries, 1)

	fresh, err := svc.Leaderboard(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 2, cache.misses)
	require.Len(t, fresh.Entries, 2)
	require.Equal(t, "bob", fresh.Entries[0].Key)
}

func TestServiceCommunityFeed(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{ID: "b", OwnerID: "o", StartTime: weekStart, Point: &domain.Point{Lat: 15, Lng: 15}})
	store.Put(domain.ActivityRecord{ID: "a", OwnerID: "o", StartTime: weekStart, Point: &domain.Point{Lat: 15, Lng: 15}})
	store.Put(domain.ActivityRecord{ID: "c", OwnerID: "o", StartTime: weekStart.Add(time.Hour), Point: &domain.Point{Lat: 15, Lng: 15}})
	store.Put(domain.ActivityRecord{ID: "d", OwnerID: "o", StartTime: weekStart.Add(2 * time.Hour), Point: &domain.Point{Lat: 5, Lng: 5}})
	store.Put(domain.ActivityRecord{ID: "e", OwnerID: "o", StartTime: weekStart.Add(3 * time.Hour), Deleted: true})
	svc := newService(t, store, newCountingCache())
	ctx := context.Background()

	box := &domain.BoundingBox{MinLat: 10, MaxLat: 20, MinLng: 10, MaxLng: 20}
	feed, err := svc.CommunityFeed(ctx, domain.FeedQuery{Page: domain.NewPageRequest(1, 2, 100), Box: box})
	require.NoError(t, err)
	require.Len(t, feed.Records, 2)
	require.Equal(t, "c", feed.Records[0].ID)
	require.Equal(t, "a", feed.Records[1].ID)
	require.Equal(t, 3, feed.Pagination.TotalItems)
	require.True(t, feed.Pagination.HasNextPage)

	empty, err := svc.CommunityFeed(ctx, domain.FeedQuery{
		Page: domain.NewPageRequest(1, 2, 100),
		Box:  &domain.BoundingBox{MinLat: -20, MaxLat: -10, MinLng: 10, MaxLng: 20},
	})
	require.NoError(t, err)
	require.NotNil(t, empty.Records)
	require.Empty(t, empty.Records)
	require.Zero(t, empty.Pagination.TotalPages)

	_, err = svc.CommunityFeed(ctx, domain.FeedQuery{Page: domain.NewPageRequest(1, 2, 100), Box: &domain.BoundingBox{MinLat: 30, MaxLat: 10}})
	require.ErrorIs(t, err, domain.ErrInvalidBoundingBox)
}
