package events

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeCollegeResolved   EventType = "college.resolved"
	EventTypeCollegeUnresolved EventType = "college.unresolved"
	EventTypeReviewRequired    EventType = "college.review_required"
	EventTypeRunCompleted      EventType = "run.completed"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ResolutionEvent is emitted for each staged result
type ResolutionEvent struct {
	BaseEvent
	State            string             `json:"state"`
	RawName          string             `json:"raw_name"`
	CollegeID        string             `json:"college_id,omitempty"`
	CollegeName      string             `json:"college_name,omitempty"`
	Pass             models.MatchPass   `json:"pass"`
	Method           models.MatchMethod `json:"method"`
	Confidence       float64            `json:"confidence"`
	NeedsReview      bool               `json:"needs_review"`
	Manual           bool               `json:"manual"`
	MatchedVariation string             `json:"matched_variation,omitempty"`
	RecordCount      int                `json:"record_count"`
}

// RunCompletedEvent summarizes a finished run
type RunCompletedEvent struct {
	BaseEvent
	Records     int `json:"records"`
	Candidates  int `json:"candidates"`
	Matched     int `json:"matched"`
	NeedsReview int `json:"needs_review"`
	Written     int `json:"written"`
}
