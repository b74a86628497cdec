// Package events defines the ingestion event payloads the stats consumer reacts to.
package events

import "time"

// Event types carried in the event_type Kafka header.
const (
	TypeActivityRecorded = "activity.recorded"
	TypeActivityDeleted  = "activity.deleted"
)

// ActivityRecorded is emitted by ingestion once an activity record is stored.
type ActivityRecorded struct {
	ActivityID      string    `json:"activity_id"`
	OwnerID         string    `json:"owner_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DistanceMeters  float64   `json:"distance_meters"`
	DurationSeconds int64     `json:"duration_seconds"`
	AreaLabel       string    `json:"area_label,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ActivityDeleted is emitted when ingestion soft-deletes a record.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	OwnerID    string    `json:"owner_id"`
	StartTime  time.Time `json:"start_time"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// Subject identifies the owner and reference instant an event affects.
type Subject struct {
	OwnerID   string
	StartTime time.Time
}

// Subject returns the stats subject of the event.
func (e ActivityRecorded) Subject() Subject {
	return Subject{OwnerID: e.OwnerID, StartTime: e.StartTime}
}

// Subject returns the stats subject of the event.
func (e ActivityDeleted) Subject() Subject {
	return Subject{OwnerID: e.OwnerID, StartTime: e.StartTime}
}
