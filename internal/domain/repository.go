package domain

import (
	"context"
	"time"
)

// ActivityReader streams activity records owned by the ingestion pipeline.
// Implementations never return deleted records.
type ActivityReader interface {
	// ScanOwner calls fn for every record of ownerID with from <= StartTime < to.
	ScanOwner(ctx context.Context, ownerID string, from, to time.Time, fn func(ActivityRecord) error) error
	// ScanActive calls fn for every record. A non-nil box may be used to narrow the scan
	// but callers still apply ContainsPoint.
	ScanActive(ctx context.Context, box *BoundingBox, fn func(ActivityRecord) error) error
	// ListFeed returns one page of records newest first along with the total match count.
	ListFeed(ctx context.Context, box *BoundingBox, page PageRequest) ([]ActivityRecord, int, error)
}

// StatsStore persists StatSummary rows keyed by (owner, period type, period start).
type StatsStore interface {
	// Upsert inserts or fully replaces the row with the summary's key.
	Upsert(ctx context.Context, summary StatSummary) error
	// ListByPeriodType returns an owner's summaries of one type, newest period first.
	ListByPeriodType(ctx context.Context, ownerID string, periodType PeriodType) ([]StatSummary, error)
	// GetAllTime returns the stored all_time summary or nil when never computed.
	GetAllTime(ctx context.Context, ownerID string) (*StatSummary, error)
}
