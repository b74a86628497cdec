package domain

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/activitystats/internal/observability"
)

// Dimension selects how records are grouped for ranking.
type Dimension string

const (
	// DimensionOwner ranks owners by cumulative distance.
	DimensionOwner Dimension = "owner"
	// DimensionArea ranks area labels by cumulative area coverage.
	DimensionArea Dimension = "area"
)

// ParseDimension converts user input into a Dimension.
func ParseDimension(raw string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(raw))); d {
	case DimensionOwner, DimensionArea:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDimension, raw)
}

// LeaderboardEntry is one ranked group. Entries are never persisted.
type LeaderboardEntry struct {
	Rank    int
	Key     string
	Total   float64
	Count   int64
	Average float64
	// Owners is the number of distinct owners contributing to an area group.
	Owners int
}

// Leaderboard is one page of ranked entries.
type Leaderboard struct {
	Dimension  Dimension
	Entries    []LeaderboardEntry
	Pagination Pagination
}

// LeaderboardQuery selects a page of a leaderboard, optionally restricted to a viewport.
type LeaderboardQuery struct {
	Dimension Dimension
	Page      PageRequest
	Box       *BoundingBox
}

type rankGroup struct {
	key    string
	total  float64
	count  int64
	owners map[string]struct{}
}

// Ranker groups every active record by dimension and returns sorted pages.
// Memory is bounded by the number of groups, not records.
type Ranker struct {
	reader ActivityReader
	logger *zap.Logger
}

// NewRanker constructs a Ranker.
func NewRanker(reader ActivityReader, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{reader: reader, logger: logger}
}

// Rank computes the requested page of the leaderboard.
func (r *Ranker) Rank(ctx context.Context, q LeaderboardQuery) (Leaderboard, error) {
	start := time.Now()

	if _, err := ParseDimension(string(q.Dimension)); err != nil {
		return Leaderboard{}, err
	}
	if q.Box != nil {
		if err := q.Box.Validate(); err != nil {
			return Leaderboard{}, err
		}
	}

	groups := make(map[string]*rankGroup)
	err := r.reader.ScanActive(ctx, q.Box, func(rec ActivityRecord) error {
		if rec.Deleted || !ContainsPoint(q.Box, rec.Point) {
			return nil
		}
		key, metric, ok := groupMetric(q.Dimension, rec)
		if !ok {
			return nil
		}
		g, exists := groups[key]
		if !exists {
			g = &rankGroup{key: key}
			if q.Dimension == DimensionArea {
				g.owners = make(map[string]struct{})
			}
			groups[key] = g
		}
		g.total += metric
		g.count++
		if g.owners != nil {
			g.owners[rec.OwnerID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return Leaderboard{}, fmt.Errorf("scan activities for %s leaderboard: %w", q.Dimension, err)
	}

	ranked := rankGroups(q.Dimension, groups)
	lo, hi := q.Page.Bounds(len(ranked))

	board := Leaderboard{
		Dimension:  q.Dimension,
		Entries:    slices.Clone(ranked[lo:hi]),
		Pagination: NewPagination(q.Page, len(ranked)),
	}
	if board.Entries == nil {
		board.Entries = []LeaderboardEntry{}
	}

	observability.RecordLeaderboard(string(q.Dimension), len(ranked), time.Since(start))
	r.logger.Debug("leaderboard ranked",
		zap.String("dimension", string(q.Dimension)),
		zap.Int("groups", len(ranked)),
		zap.Bool("bounded", q.Box != nil),
	)
	return board, nil
}

func groupMetric(dim Dimension, rec ActivityRecord) (string, float64, bool) {
	switch dim {
	case DimensionOwner:
		return rec.OwnerID, rec.DistanceMeters, rec.OwnerID != ""
	case DimensionArea:
		if !rec.HasAreaCoverage() {
			return "", 0, false
		}
		return rec.AreaLabel, *rec.AreaCoverage, true
	}
	return "", 0, false
}

// rankGroups filters ineligible groups, sorts by total descending with ascending key
// as tie-break, and assigns 1-based positional ranks.
func rankGroups(dim Dimension, groups map[string]*rankGroup) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(groups))
	for _, g := range groups {
		if dim == DimensionArea && g.total <= 0 {
			continue
		}
		entry := LeaderboardEntry{
			Key:   g.key,
			Total: g.total,
			Count: g.count,
		}
		if g.count > 0 {
			entry.Average = Round2(g.total / float64(g.count))
		}
		entry.Owners = len(g.owners)
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
