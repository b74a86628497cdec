package domain

import "time"

// SummaryKey is the natural key of a persisted StatSummary.
type SummaryKey struct {
	OwnerID     string
	PeriodType  PeriodType
	PeriodStart time.Time
}

// StatSummary aggregates an owner's records inside one period window. Totals are
// kept in base units and never rounded; see Display for the rounded view.
type StatSummary struct {
	OwnerID              string
	PeriodType           PeriodType
	PeriodStart          time.Time
	PeriodEnd            time.Time
	TotalDistanceMeters  float64
	TotalDurationSeconds int64
	TotalCount           int64
	AverageSpeedKMH      float64
	LongestDistance      float64
	LongestDuration      int64
	FastestSpeedKMH      float64
}

// Key returns the natural key of s.
func (s StatSummary) Key() SummaryKey {
	return SummaryKey{OwnerID: s.OwnerID, PeriodType: s.PeriodType, PeriodStart: s.PeriodStart.UTC()}
}

// SummaryDisplay is the human-facing unit-converted form of a StatSummary.
type SummaryDisplay struct {
	TotalDistanceKM      float64
	TotalDurationHours   float64
	AverageSpeedKMH      float64
	LongestDistanceKM    float64
	LongestDurationHours float64
	FastestSpeedKMH      float64
}

// Display converts and rounds the derived metrics.
func (s StatSummary) Display() SummaryDisplay {
	return SummaryDisplay{
		TotalDistanceKM:      Kilometers(s.TotalDistanceMeters),
		TotalDurationHours:   Hours(s.TotalDurationSeconds),
		AverageSpeedKMH:      Round2(s.AverageSpeedKMH),
		LongestDistanceKM:    Kilometers(s.LongestDistance),
		LongestDurationHours: Hours(s.LongestDuration),
		FastestSpeedKMH:      Round2(s.FastestSpeedKMH),
	}
}

// summaryAccumulator folds records one at a time so callers can stream.
type summaryAccumulator struct {
	distance        float64
	duration        int64
	count           int64
	longestDistance float64
	longestDuration int64
	fastest         float64
}

func (a *summaryAccumulator) add(r ActivityRecord) {
	a.distance += r.DistanceMeters
	a.duration += r.DurationSeconds
	a.count++
	if r.DistanceMeters > a.longestDistance {
		a.longestDistance = r.DistanceMeters
	}
	if r.DurationSeconds > a.longestDuration {
		a.longestDuration = r.DurationSeconds
	}
	if r.MaxSpeedKMH > a.fastest {
		a.fastest = r.MaxSpeedKMH
	}
}

func (a *summaryAccumulator) summary(ownerID string, period Period) StatSummary {
	return StatSummary{
		OwnerID:              ownerID,
		PeriodType:           period.Type,
		PeriodStart:          period.Start,
		PeriodEnd:            period.End,
		TotalDistanceMeters:  a.distance,
		TotalDurationSeconds: a.duration,
		TotalCount:           a.count,
		AverageSpeedKMH:      SpeedKMH(a.distance, a.duration),
		LongestDistance:      a.longestDistance,
		LongestDuration:      a.longestDuration,
		FastestSpeedKMH:      a.fastest,
	}
}
