package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"example.com/activitystats/internal/domain"
)

const summaryColumns = `owner_id, period_type, period_start, period_end, total_distance_m, total_duration_s, total_count,
        avg_speed_kmh, longest_distance_m, longest_duration_s, fastest_speed_kmh`

// Upsert implements domain.StatsStore with a single INSERT .. ON CONFLICT statement,
// which replaces every column of the existing row atomically.
func (r *Repository) Upsert(ctx context.Context, s domain.StatSummary) error {
	const stmt = `INSERT INTO stat_summaries (summary_id, ` + summaryColumns + `, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, NOW())
        ON CONFLICT ON CONSTRAINT stat_summaries_natural_key DO UPDATE SET
            period_end = EXCLUDED.period_end,
            total_distance_m = EXCLUDED.total_distance_m,
            total_duration_s = EXCLUDED.total_duration_s,
            total_count = EXCLUDED.total_count,
            avg_speed_kmh = EXCLUDED.avg_speed_kmh,
            longest_distance_m = EXCLUDED.longest_distance_m,
            longest_duration_s = EXCLUDED.longest_duration_s,
            fastest_speed_kmh = EXCLUDED.fastest_speed_kmh,
            updated_at = NOW()`

	_, err := r.pool.Exec(ctx, stmt,
		uuid.New(),
		s.OwnerID,
		string(s.PeriodType),
		s.PeriodStart.UTC(),
		s.PeriodEnd.UTC(),
		s.TotalDistanceMeters,
		s.TotalDurationSeconds,
		s.TotalCount,
		s.AverageSpeedKMH,
		s.LongestDistance,
		s.LongestDuration,
		s.FastestSpeedKMH,
	)
	return classify(err)
}

// ListByPeriodType implements domain.StatsStore.
func (r *Repository) ListByPeriodType(ctx context.Context, ownerID string, periodType domain.PeriodType) ([]domain.StatSummary, error) {
	const query = `SELECT ` + summaryColumns + `
        FROM stat_summaries WHERE owner_id=$1 AND period_type=$2
        ORDER BY period_start DESC`

	rows, err := r.pool.Query(ctx, query, ownerID, string(periodType))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	results := make([]domain.StatSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return results, nil
}

// GetAllTime implements domain.StatsStore.
func (r *Repository) GetAllTime(ctx context.Context, ownerID string) (*domain.StatSummary, error) {
	const query = `SELECT ` + summaryColumns + `
        FROM stat_summaries WHERE owner_id=$1 AND period_type=$2 AND period_start=$3`

	row := r.pool.QueryRow(ctx, query, ownerID, string(domain.PeriodAllTime), domain.AllTimeStart)
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func scanSummary(row pgx.Row) (domain.StatSummary, error) {
	var (
		s          domain.StatSummary
		periodType string
	)
	if err := row.Scan(&s.OwnerID, &periodType, &s.PeriodStart, &s.PeriodEnd, &s.TotalDistanceMeters, &s.TotalDurationSeconds,
		&s.TotalCount, &s.AverageSpeedKMH, &s.LongestDistance, &s.LongestDuration, &s.FastestSpeedKMH); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StatSummary{}, err
		}
		return domain.StatSummary{}, classify(err)
	}
	s.PeriodType = domain.PeriodType(periodType)
	s.PeriodStart = s.PeriodStart.UTC()
	s.PeriodEnd = s.PeriodEnd.UTC()
	return s, nil
}
