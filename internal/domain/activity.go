package domain

import "time"

// Point is the representative location of an activity.
type Point struct {
	Lat float64
	Lng float64
}

// ActivityRecord is a completed activity as written by the ingestion pipeline.
// Distances are meters, durations seconds, speeds km/h.
type ActivityRecord struct {
	ID              string
	OwnerID         string
	StartTime       time.Time
	EndTime         time.Time
	DistanceMeters  float64
	DurationSeconds int64
	AverageSpeedKMH float64
	MaxSpeedKMH     float64
	AreaLabel       string
	AreaCoverage    *float64
	Point           *Point
	Deleted         bool
	CreatedAt       time.Time
}

// HasAreaCoverage reports whether the record can contribute to the area leaderboard.
func (r ActivityRecord) HasAreaCoverage() bool {
	return r.AreaLabel != "" && r.AreaCoverage != nil && *r.AreaCoverage > 0
}

// Cursor is a keyset position in the (StartTime, ID) ordering of activity records.
type Cursor struct {
	StartTime time.Time
	ID        string
}

// After reports whether the record sorts strictly after the cursor.
func (c *Cursor) After(r ActivityRecord) bool {
	if c == nil {
		return true
	}
	if r.StartTime.Equal(c.StartTime) {
		return r.ID > c.ID
	}
	return r.StartTime.After(c.StartTime)
}
