package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"example.com/activitystats/internal/observability"
)

// RetryPolicy bounds the retries spent on ErrUpsertConflict.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times starting at 50ms.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}

// EngineOption configures optional Engine behaviour.
type EngineOption func(*Engine)

// WithRetryPolicy overrides the upsert retry policy.
func WithRetryPolicy(policy RetryPolicy) EngineOption {
	return func(e *Engine) {
		e.retry = policy
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine reduces an owner's records into summaries and writes them through the store.
type Engine struct {
	reader   ActivityReader
	store    StatsStore
	windower Windower
	retry    RetryPolicy
	logger   *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(reader ActivityReader, store StatsStore, windower Windower, opts ...EngineOption) *Engine {
	e := &Engine{
		reader:   reader,
		store:    store,
		windower: windower,
		retry:    DefaultRetryPolicy,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeSummary recomputes the summary for the period containing ref and upserts it.
// An owner without records in the window gets a zero-valued summary.
func (e *Engine) ComputeSummary(ctx context.Context, ownerID string, periodType PeriodType, ref time.Time) (StatSummary, error) {
	start := time.Now()

	period, err := e.windower.Compute(periodType, ref)
	if err != nil {
		return StatSummary{}, err
	}

	summary, err := e.summarize(ctx, ownerID, period)
	if err != nil {
		return StatSummary{}, err
	}

	if err := e.upsert(ctx, summary); err != nil {
		return StatSummary{}, err
	}

	observability.RecordSummaryComputed(string(periodType), time.Since(start))
	e.logger.Debug("summary computed",
		zap.String("owner_id", ownerID),
		zap.String("period_type", string(periodType)),
		zap.Time("period_start", summary.PeriodStart),
		zap.Int64("total_count", summary.TotalCount),
	)
	return summary, nil
}

// ComputeRange summarizes an arbitrary window without persisting it.
func (e *Engine) ComputeRange(ctx context.Context, ownerID string, from, to time.Time) (StatSummary, error) {
	period, err := Range(from, to)
	if err != nil {
		return StatSummary{}, err
	}
	return e.summarize(ctx, ownerID, period)
}

func (e *Engine) summarize(ctx context.Context, ownerID string, period Period) (StatSummary, error) {
	var acc summaryAccumulator
	err := e.reader.ScanOwner(ctx, ownerID, period.Start, period.End, func(r ActivityRecord) error {
		if r.OwnerID != ownerID || r.Deleted || !period.Contains(r.StartTime) {
			return nil
		}
		acc.add(r)
		return nil
	})
	if err != nil {
		return StatSummary{}, fmt.Errorf("scan activities for %s: %w", ownerID, err)
	}
	return acc.summary(ownerID, period), nil
}

func (e *Engine) upsert(ctx context.Context, summary StatSummary) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = e.retry.BaseDelay
	if e.retry.MaxDelay > 0 {
		eb.MaxInterval = e.retry.MaxDelay
	}
	eb.MaxElapsedTime = 0

	maxRetries := e.retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxRetries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := e.store.Upsert(ctx, summary)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUpsertConflict) {
			if attempt <= maxRetries {
				observability.RecordUpsertRetry()
				e.logger.Warn("summary upsert conflict, retrying",
					zap.String("owner_id", summary.OwnerID),
					zap.String("period_type", string(summary.PeriodType)),
					zap.Int("attempt", attempt),
				)
			}
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		if errors.Is(err, ErrUpsertConflict) {
			observability.RecordUpsertConflict()
		}
		return fmt.Errorf("upsert %s summary for %s: %w", summary.PeriodType, summary.OwnerID, err)
	}
	return nil
}
