// Package memory provides in-process activity and summary storage for local
// development and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"example.com/activitystats/internal/domain"
)

type storedSummary struct {
	id      string
	version int64
	summary domain.StatSummary
}

// Store keeps activity records and summaries in memory. Summary upserts use a
// per-key compare-and-swap, so losing writers observe domain.ErrUpsertConflict.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ActivityRecord

	summaries sync.Map // domain.SummaryKey -> *atomic.Pointer[storedSummary]
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]domain.ActivityRecord)}
}

// Put inserts or replaces an activity record, standing in for the ingestion pipeline.
func (s *Store) Put(record domain.ActivityRecord) domain.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.ID] = record
	return record
}

// MarkDeleted soft-deletes a record. It reports whether the record existed.
func (s *Store) MarkDeleted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return false
	}
	record.Deleted = true
	s.records[id] = record
	return true
}

// active returns a snapshot of non-deleted records ordered by (StartTime, ID).
func (s *Store) active(keep func(domain.ActivityRecord) bool) []domain.ActivityRecord {
	s.mu.RLock()
	out := make([]domain.ActivityRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.Deleted || !keep(r) {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.ActivityRecord) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// ScanOwner implements domain.ActivityReader.
func (s *Store) ScanOwner(ctx context.Context, ownerID string, from, to time.Time, fn func(domain.ActivityRecord) error) error {
	records := s.active(func(r domain.ActivityRecord) bool {
		return r.OwnerID == ownerID && !r.StartTime.Before(from) && r.StartTime.Before(to)
	})
	return each(ctx, records, fn)
}

// ScanActive implements domain.ActivityReader.
func (s *Store) ScanActive(ctx context.Context, box *domain.BoundingBox, fn func(domain.ActivityRecord) error) error {
	records := s.active(func(r domain.ActivityRecord) bool {
		return domain.ContainsPoint(box, r.Point)
	})
	return each(ctx, records, fn)
}

// ListFeed implements domain.ActivityReader.
func (s *Store) ListFeed(ctx context.Context, box *domain.BoundingBox, page domain.PageRequest) ([]domain.ActivityRecord, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	records := s.active(func(r domain.ActivityRecord) bool {
		return domain.ContainsPoint(box, r.Point)
	})
	slices.SortStableFunc(records, func(a, b domain.ActivityRecord) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	lo, hi := page.Bounds(len(records))
	return slices.Clone(records[lo:hi]), len(records), nil
}

func each(ctx context.Context, records []domain.ActivityRecord, fn func(domain.ActivityRecord) error) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Upsert implements domain.StatsStore.
func (s *Store) Upsert(ctx context.Context, summary domain.StatSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	summary.PeriodStart = summary.PeriodStart.UTC()
	summary.PeriodEnd = summary.PeriodEnd.UTC()

	slot, _ := s.summaries.LoadOrStore(summary.Key(), &atomic.Pointer[storedSummary]{})
	ptr := slot.(*atomic.Pointer[storedSummary])

	current := ptr.Load()
	next := &storedSummary{id: uuid.NewString(), version: 1, summary: summary}
	if current != nil {
		next.id = current.id
		next.version = current.version + 1
	}
	if !ptr.CompareAndSwap(current, next) {
		return domain.ErrUpsertConflict
	}
	return nil
}

// ListByPeriodType implements domain.StatsStore.
func (s *Store) ListByPeriodType(ctx context.Context, ownerID string, periodType domain.PeriodType) ([]domain.StatSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.StatSummary, 0)
	s.summaries.Range(func(key, value any) bool {
		k := key.(domain.SummaryKey)
		if k.OwnerID != ownerID || k.PeriodType != periodType {
			return true
		}
		if stored := value.(*atomic.Pointer[storedSummary]).Load(); stored != nil {
			out = append(out, stored.summary)
		}
		return true
	})
	slices.SortFunc(out, func(a, b domain.StatSummary) int {
		return cmp.Compare(b.PeriodStart.UnixNano(), a.PeriodStart.UnixNano())
	})
	return out, nil
}

// GetAllTime implements domain.StatsStore.
func (s *Store) GetAllTime(ctx context.Context, ownerID string) (*domain.StatSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := domain.SummaryKey{OwnerID: ownerID, PeriodType: domain.PeriodAllTime, PeriodStart: domain.AllTimeStart}
	slot, ok := s.summaries.Load(key)
	if !ok {
		return nil, nil
	}
	stored := slot.(*atomic.Pointer[storedSummary]).Load()
	if stored == nil {
		return nil, nil
	}
	summary := stored.summary
	return &summary, nil
}

// SummaryCount returns the number of stored summary rows.
func (s *Store) SummaryCount() int {
	n := 0
	s.summaries.Range(func(_, value any) bool {
		if value.(*atomic.Pointer[storedSummary]).Load() != nil {
			n++
		}
		return true
	})
	return n
}

// Close releases nothing; it exists for lifecycle symmetry with the postgres store.
func (s *Store) Close() {}
