package api

import (
	"time"

	"example.com/activitystats/internal/domain"
)

// SummaryView exposes a stored or computed StatSummary. Raw totals stay in base
// units; Display carries the rounded, unit-converted figures.
type SummaryView struct {
	OwnerID                string      `json:"owner_id"`
	PeriodType             string      `json:"period_type,omitempty"`
	PeriodStart            time.Time   `json:"period_start"`
	PeriodEnd              time.Time   `json:"period_end"`
	TotalDistanceMeters    float64     `json:"total_distance_meters"`
	TotalDurationSeconds   int64       `json:"total_duration_seconds"`
	TotalCount             int64       `json:"total_count"`
	AverageSpeedKMH        float64     `json:"average_speed_kmh"`
	LongestDistanceMeters  float64     `json:"longest_distance_meters"`
	LongestDurationSeconds int64       `json:"longest_duration_seconds"`
	FastestSpeedKMH        float64     `json:"fastest_speed_kmh"`
	Display                DisplayView `json:"display"`
}

// DisplayView is the human-facing, 2dp-rounded form of a summary.
type DisplayView struct {
	TotalDistanceKM      float64 `json:"total_distance_km"`
	TotalDurationHours   float64 `json:"total_duration_hours"`
	AverageSpeedKMH      float64 `json:"average_speed_kmh"`
	LongestDistanceKM    float64 `json:"longest_distance_km"`
	LongestDurationHours float64 `json:"longest_duration_hours"`
	FastestSpeedKMH      float64 `json:"fastest_speed_kmh"`
}

// HistoryResponse lists stored summaries newest first.
type HistoryResponse struct {
	PeriodType string        `json:"period_type"`
	Items      []SummaryView `json:"items"`
}

// AllTimeResponse wraps the optional all_time summary.
type AllTimeResponse struct {
	Found   bool         `json:"found"`
	Summary *SummaryView `json:"summary,omitempty"`
}

// RefreshResponse lists the summaries written by a refresh, one per period type.
type RefreshResponse struct {
	OwnerID string        `json:"owner_id"`
	Items   []SummaryView `json:"items"`
}

// PaginationView is the shared pagination envelope.
type PaginationView struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

// LeaderboardEntryView is one ranked row.
type LeaderboardEntryView struct {
	Rank    int     `json:"rank"`
	Key     string  `json:"key"`
	Total   float64 `json:"total"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Owners  int     `json:"owners,omitempty"`
}

// LeaderboardResponse is one page of a leaderboard.
type LeaderboardResponse struct {
	Dimension  string                 `json:"dimension"`
	Entries    []LeaderboardEntryView `json:"entries"`
	Pagination PaginationView         `json:"pagination"`
}

// PointView is a representative location.
type PointView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RecordView exposes an activity record in the community feed.
type RecordView struct {
	ActivityID      string     `json:"activity_id"`
	OwnerID         string     `json:"owner_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DistanceKM      float64    `json:"distance_km"`
	DurationHours   float64    `json:"duration_hours"`
	AverageSpeedKMH float64    `json:"average_speed_kmh"`
	MaxSpeedKMH     float64    `json:"max_speed_kmh"`
	AreaLabel       string     `json:"area_label,omitempty"`
	Point           *PointView `json:"point,omitempty"`
}

// FeedResponse is one page of the community feed.
type FeedResponse struct {
	Records    []RecordView   `json:"records"`
	Pagination PaginationView `json:"pagination"`
}

func toSummaryView(s domain.StatSummary) SummaryView {
	display := s.Display()
	return SummaryView{
		OwnerID:                s.OwnerID,
		PeriodType:             string(s.PeriodType),
		PeriodStart:            s.PeriodStart,
		PeriodEnd:              s.PeriodEnd,
		TotalDistanceMeters:    s.TotalDistanceMeters,
		TotalDurationSeconds:   s.TotalDurationSeconds,
		TotalCount:             s.TotalCount,
		AverageSpeedKMH:        s.AverageSpeedKMH,
		LongestDistanceMeters:  s.LongestDistance,
		LongestDurationSeconds: s.LongestDuration,
		FastestSpeedKMH:        s.FastestSpeedKMH,
		Display: DisplayView{
			TotalDistanceKM:      display.TotalDistanceKM,
			TotalDurationHours:   display.TotalDurationHours,
			AverageSpeedKMH:      display.AverageSpeedKMH,
			LongestDistanceKM:    display.LongestDistanceKM,
			LongestDurationHours: display.LongestDurationHours,
			FastestSpeedKMH:      display.FastestSpeedKMH,
		},
	}
}

func toPaginationView(p domain.Pagination) PaginationView {
	return PaginationView{
		Page:        p.Page,
		Limit:       p.Limit,
		TotalItems:  p.TotalItems,
		TotalPages:  p.TotalPages,
		HasNextPage: p.HasNextPage,
		HasPrevPage: p.HasPrevPage,
	}
}

func toLeaderboardResponse(board domain.Leaderboard) LeaderboardResponse {
	entries := make([]LeaderboardEntryView, 0, len(board.Entries))
	for _, e := range board.Entries {
		entries = append(entries, LeaderboardEntryView{
			Rank:    e.Rank,
			Key:     e.Key,
			Total:   e.Total,
			Count:   e.Count,
			Average: e.Average,
			Owners:  e.Owners,
		})
	}
	return LeaderboardResponse{
		Dimension:  string(board.Dimension),
		Entries:    entries,
		Pagination: toPaginationView(board.Pagination),
	}
}

func toFeedResponse(feed domain.Feed) FeedResponse {
	records := make([]RecordView, 0, len(feed.Records))
	for _, r := range feed.Records {
		view := RecordView{
			ActivityID:      r.ID,
			OwnerID:         r.OwnerID,
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			DistanceKM:      domain.Kilometers(r.DistanceMeters),
			DurationHours:   domain.Hours(r.DurationSeconds),
			AverageSpeedKMH: domain.Round2(r.AverageSpeedKMH),
			MaxSpeedKMH:     domain.Round2(r.MaxSpeedKMH),
			AreaLabel:       r.AreaLabel,
		}
		if r.Point != nil {
			view.Point = &PointView{Lat: r.Point.Lat, Lng: r.Point.Lng}
		}
		records = append(records, view)
	}
	return FeedResponse{Records: records, Pagination: toPaginationView(feed.Pagination)}
}
