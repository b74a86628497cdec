package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activitystats/internal/domain"
)

const defaultBatchSize = 500

const activityColumns = `activity_id, owner_id, start_time, end_time, distance_m, duration_s, avg_speed_kmh, max_speed_kmh,
        area_label, area_coverage, centroid_lat, centroid_lng, deleted, created_at`

// Repository provides Postgres-backed reads of activity records and persistence of summaries.
type Repository struct {
	pool      *pgxpool.Pool
	batchSize int
}

// Option configures the Repository.
type Option func(*Repository)

// WithBatchSize sets how many records each keyset scan query fetches.
func WithBatchSize(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ScanOwner implements domain.ActivityReader.
func (r *Repository) ScanOwner(ctx context.Context, ownerID string, from, to time.Time, fn func(domain.ActivityRecord) error) error {
	where := []string{"owner_id = @owner", "start_time >= @from", "start_time < @to"}
	args := pgx.NamedArgs{"owner": ownerID, "from": from.UTC(), "to": to.UTC()}
	return r.scan(ctx, where, args, fn)
}

// ScanActive implements domain.ActivityReader. The box is pushed into the query.
func (r *Repository) ScanActive(ctx context.Context, box *domain.BoundingBox, fn func(domain.ActivityRecord) error) error {
	where, args := boxFilter(box)
	return r.scan(ctx, where, args, fn)
}

// scan walks matching rows in (start_time, activity_id) order one batch at a time so
// memory stays bounded by the batch size.
func (r *Repository) scan(ctx context.Context, where []string, args pgx.NamedArgs, fn func(domain.ActivityRecord) error) error {
	var cursor *domain.Cursor
	for {
		batchArgs := pgx.NamedArgs{"limit": r.batchSize}
		for k, v := range args {
			batchArgs[k] = v
		}
		clauses := append([]string{"NOT deleted"}, where...)
		if cursor != nil {
			clauses = append(clauses, "(start_time, activity_id) > (@cursor_start, @cursor_id)")
			batchArgs["cursor_start"] = cursor.StartTime
			batchArgs["cursor_id"] = cursor.ID
		}

		query := `SELECT ` + activityColumns + `
        FROM activity_records WHERE ` + strings.Join(clauses, " AND ") + `
        ORDER BY start_time, activity_id LIMIT @limit`

		batch, err := r.queryRecords(ctx, r.pool, query, batchArgs)
		if err != nil {
			return err
		}
		for _, rec := range batch {
			if !cursor.After(rec) {
				return fmt.Errorf("keyset scan did not advance past %s/%s", cursor.StartTime.Format(time.RFC3339Nano), cursor.ID)
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(batch) < r.batchSize {
			return nil
		}
		last := batch[len(batch)-1]
		cursor = &domain.Cursor{StartTime: last.StartTime, ID: last.ID}
	}
}

// ListFeed implements domain.ActivityReader. The count and the page are read in one
// repeatable-read snapshot so TotalItems always agrees with the rows returned.
func (r *Repository) ListFeed(ctx context.Context, box *domain.BoundingBox, page domain.PageRequest) (records []domain.ActivityRecord, total int, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, classify(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	where, args := boxFilter(box)
	clauses := strings.Join(append([]string{"NOT deleted"}, where...), " AND ")

	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM activity_records WHERE `+clauses, args).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	records = []domain.ActivityRecord{}
	if total > 0 && page.Offset() < total {
		pageArgs := pgx.NamedArgs{"limit": page.Limit, "offset": page.Offset()}
		for k, v := range args {
			pageArgs[k] = v
		}
		query := `SELECT ` + activityColumns + `
        FROM activity_records WHERE ` + clauses + `
        ORDER BY start_time DESC, activity_id ASC LIMIT @limit OFFSET @offset`

		if records, err = r.queryRecords(ctx, tx, query, pageArgs); err != nil {
			return nil, 0, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, 0, classify(err)
	}
	return records, total, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) queryRecords(ctx context.Context, q querier, query string, args pgx.NamedArgs) ([]domain.ActivityRecord, error) {
	rows, err := q.Query(ctx, query, args)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0, r.batchSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return results, nil
}

func scanRecord(row pgx.Row) (domain.ActivityRecord, error) {
	var (
		rec      domain.ActivityRecord
		area     *string
		coverage *float64
		lat, lng *float64
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.StartTime, &rec.EndTime, &rec.DistanceMeters, &rec.DurationSeconds,
		&rec.AverageSpeedKMH, &rec.MaxSpeedKMH, &area, &coverage, &lat, &lng, &rec.Deleted, &rec.CreatedAt); err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("scan activity record: %w", err)
	}
	if area != nil {
		rec.AreaLabel = *area
	}
	rec.AreaCoverage = coverage
	if lat != nil && lng != nil {
		rec.Point = &domain.Point{Lat: *lat, Lng: *lng}
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.EndTime = rec.EndTime.UTC()
	return rec, nil
}

func boxFilter(box *domain.BoundingBox) ([]string, pgx.NamedArgs) {
	args := pgx.NamedArgs{}
	if box == nil {
		return nil, args
	}
	args["min_lat"] = box.MinLat
	args["max_lat"] = box.MaxLat
	args["min_lng"] = box.MinLng
	args["max_lng"] = box.MaxLng
	return []string{
		"centroid_lat IS NOT NULL",
		"centroid_lng IS NOT NULL",
		"centroid_lat BETWEEN @min_lat AND @max_lat",
		"centroid_lng BETWEEN @min_lng AND @max_lng",
	}, args
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}
