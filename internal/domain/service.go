// Package domain implements period windows, summary aggregation and leaderboard
// ranking over activity records.
package domain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed is one page of the community activity feed.
type Feed struct {
	Records    []ActivityRecord
	Pagination Pagination
}

// FeedQuery selects a page of the community feed.
type FeedQuery struct {
	Page PageRequest
	Box  *BoundingBox
}

// CacheGeneration scopes cached pages. Invalidate moves the cache to a new generation,
// so a page written under an older one is never read back.
type CacheGeneration int64

// PageCache stores computed leaderboard and feed pages. Callers read the generation
// once before computing a page and write under that same generation. The service
// never fails a read because of the cache.
type PageCache interface {
	Generation(ctx context.Context) (CacheGeneration, error)
	GetLeaderboard(ctx context.Context, gen CacheGeneration, q LeaderboardQuery) (Leaderboard, bool, error)
	SetLeaderboard(ctx context.Context, gen CacheGeneration, q LeaderboardQuery, board Leaderboard) error
	GetFeed(ctx context.Context, gen CacheGeneration, q FeedQuery) (Feed, bool, error)
	SetFeed(ctx context.Context, gen CacheGeneration, q FeedQuery, feed Feed) error
	Invalidate(ctx context.Context) error
}

// Service is the entry point used by the API and the event consumer.
type Service struct {
	engine *Engine
	ranker *Ranker
	reader ActivityReader
	store  StatsStore
	cache  PageCache
	logger *zap.Logger
}

// NewService constructs a Service. cache may be nil.
func NewService(engine *Engine, ranker *Ranker, reader ActivityReader, store StatsStore, cache PageCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine: engine,
		ranker: ranker,
		reader: reader,
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// ComputeStats recomputes and persists the owner's summary for the period containing ref.
func (s *Service) ComputeStats(ctx context.Context, ownerID string, periodType PeriodType, ref time.Time) (StatSummary, error) {
	return s.engine.ComputeSummary(ctx, ownerID, periodType, ref)
}

// ComputeRange summarizes an arbitrary window without persisting it.
func (s *Service) ComputeRange(ctx context.Context, ownerID string, from, to time.Time) (StatSummary, error) {
	return s.engine.ComputeRange(ctx, ownerID, from, to)
}

// RefreshStats recomputes every period type for ref. Each period type has its own
// key, so the computations run concurrently.
func (s *Service) RefreshStats(ctx context.Context, ownerID string, ref time.Time) ([]StatSummary, error) {
	results := make([]StatSummary, len(PeriodTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, pt := range PeriodTypes {
		g.Go(func() error {
			summary, err := s.engine.ComputeSummary(gctx, ownerID, pt, ref)
			if err != nil {
				return err
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// StatsHistory returns stored summaries newest period first.
func (s *Service) StatsHistory(ctx context.Context, ownerID string, periodType PeriodType) ([]StatSummary, error) {
	if !periodType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodType, string(periodType))
	}
	return s.store.ListByPeriodType(ctx, ownerID, periodType)
}

// AllTimeStats returns the stored all_time summary, or nil when none was computed yet.
func (s *Service) AllTimeStats(ctx context.Context, ownerID string) (*StatSummary, error) {
	return s.store.GetAllTime(ctx, ownerID)
}

// Leaderboard returns one page of a ranking, served from cache when possible.
func (s *Service) Leaderboard(ctx context.Context, q LeaderboardQuery) (Leaderboard, error) {
	gen, cached := s.cacheGeneration(ctx)
	if cached {
		board, ok, err := s.cache.GetLeaderboard(ctx, gen, q)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		} else if ok {
			return board, nil
		}
	}

	board, err := s.ranker.Rank(ctx, q)
	if err != nil {
		return Leaderboard{}, err
	}

	if cached {
		if err := s.cache.SetLeaderboard(ctx, gen, q, board); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

// CommunityFeed returns active records newest first, optionally inside a viewport.
func (s *Service) CommunityFeed(ctx context.Context, q FeedQuery) (Feed, error) {
	if q.Box != nil {
		if err := q.Box.Validate(); err != nil {
			return Feed{}, err
		}
	}

	gen, cached := s.cacheGeneration(ctx)
	if cached {
		feed, ok, err := s.cache.GetFeed(ctx, gen, q)
		if err != nil {
			s.logger.Warn("feed cache read failed", zap.Error(err))
		} else if ok {
			return feed, nil
		}
	}

	records, total, err := s.reader.ListFeed(ctx, q.Box, q.Page)
	if err != nil {
		return Feed{}, fmt.Errorf("list community feed: %w", err)
	}
	if records == nil {
		records = []ActivityRecord{}
	}
	feed := Feed{Records: records, Pagination: NewPagination(q.Page, total)}

	if cached {
		if err := s.cache.SetFeed(ctx, gen, q, feed); err != nil {
			s.logger.Warn("feed cache write failed", zap.Error(err))
		}
	}
	return feed, nil
}

// cacheGeneration reports the current generation, or false when the cache is
// disabled or unreachable and the page should be computed without it.
func (s *Service) cacheGeneration(ctx context.Context) (CacheGeneration, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

// InvalidateCaches drops cached leaderboard and feed pages.
func (s *Service) InvalidateCaches(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
