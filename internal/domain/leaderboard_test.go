package domain_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activitystats/internal/domain"
	"example.com/activitystats/internal/persistence/memory"
)

func coverage(v float64) *float64 { return &v }

func rank(t *testing.T, store *memory.Store, q domain.LeaderboardQuery) domain.Leaderboard {
	t.Helper()
	board, err := domain.NewRanker(store, nil).Rank(context.Background(), q)
	require.NoError(t, err)
	return board
}

func TestRankOwnersTieBreak(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "bob", StartTime: weekStart, DistanceMeters: 5000})
	store.Put(domain.ActivityRecord{OwnerID: "alice", StartTime: weekStart, DistanceMeters: 2000})
	store.Put(domain.ActivityRecord{OwnerID: "alice", StartTime: weekStart.Add(time.Hour), DistanceMeters: 3000})
	store.Put(domain.ActivityRecord{OwnerID: "carol", StartTime: weekStart, DistanceMeters: 7000})
	store.Put(domain.ActivityRecord{OwnerID: "dave", StartTime: weekStart, DistanceMeters: 9000, Deleted: true})

	board := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 10, 100)})

	require.Equal(t, []domain.LeaderboardEntry{
		{Rank: 1, Key: "carol", Total: 7000, Count: 1, Average: 7000},
		{Rank: 2, Key: "alice", Total: 5000, Count: 2, Average: 2500},
		{Rank: 3, Key: "bob", Total: 5000, Count: 1, Average: 5000},
	}, board.Entries)
	require.Equal(t, 3, board.Pagination.TotalItems)
	require.Equal(t, 1, board.Pagination.TotalPages)
}

func TestRankPagesAreComplete(t *testing.T) {
	store := memory.NewStore()
	const owners = 23
	for i := 0; i < owners; i++ {
		// Every third owner shares a total to exercise the tie-break across pages.
		store.Put(domain.ActivityRecord{
			OwnerID:        fmt.Sprintf("owner-%02d", i),
			StartTime:      weekStart,
			DistanceMeters: float64(1000 * (i / 3)),
		})
	}

	first := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 5, 100)})
	require.Equal(t, owners, first.Pagination.TotalItems)
	require.Equal(t, 5, first.Pagination.TotalPages)
	require.True(t, first.Pagination.HasNextPage)
	require.False(t, first.Pagination.HasPrevPage)

	seen := make(map[string]bool)
	var all []domain.LeaderboardEntry
	for page := 1; page <= first.Pagination.TotalPages; page++ {
		board := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(page, 5, 100)})
		for _, e := range board.Entries {
			require.False(t, seen[e.Key], "duplicate %s", e.Key)
			seen[e.Key] = true
		}
		all = append(all, board.Entries...)
	}
	require.Len(t, all, owners)

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		require.Equal(t, i+1, cur.Rank)
		require.GreaterOrEqual(t, prev.Total, cur.Total)
		if prev.Total == cur.Total {
			require.Less(t, prev.Key, cur.Key)
		}
	}

	past := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(9, 5, 100)})
	require.Empty(t, past.Entries)
	require.NotNil(t, past.Entries)
	require.Equal(t, owners, past.Pagination.TotalItems)
	require.False(t, past.Pagination.HasNextPage)
}

func TestRankAreasRequireCoverage(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "a", AreaLabel: "riverside", AreaCoverage: coverage(1.5), StartTime: weekStart})
	store.Put(domain.ActivityRecord{OwnerID: "b", AreaLabel: "riverside", AreaCoverage: coverage(0.5), StartTime: weekStart})
	store.Put(domain.ActivityRecord{OwnerID: "a", AreaLabel: "harbour", AreaCoverage: coverage(3), StartTime: weekStart})
	store.Put(domain.ActivityRecord{OwnerID: "c", AreaLabel: "old-town", AreaCoverage: coverage(0), StartTime: weekStart})
	store.Put(domain.ActivityRecord{OwnerID: "c", AreaLabel: "meadow", StartTime: weekStart})
	store.Put(domain.ActivityRecord{OwnerID: "c", AreaCoverage: coverage(4), StartTime: weekStart})

	board := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionArea, Page: domain.NewPageRequest(1, 10, 100)})

	require.Equal(t, []domain.LeaderboardEntry{
		{Rank: 1, Key: "harbour", Total: 3, Count: 1, Average: 3, Owners: 1},
		{Rank: 2, Key: "riverside", Total: 2, Count: 2, Average: 1, Owners: 2},
	}, board.Entries)
}

func TestRankGeoFilter(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "inside", StartTime: weekStart, DistanceMeters: 100, Point: &domain.Point{Lat: 15, Lng: 15}})
	store.Put(domain.ActivityRecord{OwnerID: "outside", StartTime: weekStart, DistanceMeters: 900, Point: &domain.Point{Lat: 5, Lng: 5}})
	store.Put(domain.ActivityRecord{OwnerID: "unplaced", StartTime: weekStart, DistanceMeters: 900})

	box := &domain.BoundingBox{MinLat: 10, MaxLat: 20, MinLng: 10, MaxLng: 20}
	board := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(1, 10, 100), Box: box})
	require.Len(t, board.Entries, 1)
	require.Equal(t, "inside", board.Entries[0].Key)

	empty := rank(t, store, domain.LeaderboardQuery{
		Dimension: domain.DimensionOwner,
		Page:      domain.NewPageRequest(1, 10, 100),
		Box:       &domain.BoundingBox{MinLat: -5, MaxLat: 5, MinLng: 170, MaxLng: -170},
	})
	require.Empty(t, empty.Entries)
	require.Zero(t, empty.Pagination.TotalItems)
}

func TestRankRejectsInvalidInput(t *testing.T) {
	ranker := domain.NewRanker(memory.NewStore(), nil)
	ctx := context.Background()

	_, err := ranker.Rank(ctx, domain.LeaderboardQuery{Dimension: "speed", Page: domain.NewPageRequest(1, 10, 100)})
	require.ErrorIs(t, err, domain.ErrInvalidDimension)

	_, err = ranker.Rank(ctx, domain.LeaderboardQuery{
		Dimension: domain.DimensionOwner,
		Page:      domain.NewPageRequest(1, 10, 100),
		Box:       &domain.BoundingBox{MinLat: 50, MaxLat: 10},
	})
	require.ErrorIs(t, err, domain.ErrInvalidBoundingBox)
}

func TestRankOversizedPageIsEmpty(t *testing.T) {
	store := memory.NewStore()
	store.Put(domain.ActivityRecord{OwnerID: "alice", StartTime: weekStart, DistanceMeters: 2000})

	board := rank(t, store, domain.LeaderboardQuery{Dimension: domain.DimensionOwner, Page: domain.NewPageRequest(math.MaxInt/50, 100, 100)})
	require.Empty(t, board.Entries)
	require.Equal(t, 1, board.Pagination.TotalItems)
	require.False(t, board.Pagination.HasNextPage)
}
