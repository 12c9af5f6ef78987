package models

import "time"

// Status of an emergency report. A closed set; the server owns any further
// transition restrictions.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusCancelled  Status = "CANCELLED"
)

// StatusAll is the history filter value that selects every report. It is not
// a report status.
const StatusAll Status = "ALL"

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// Label returns the human-readable text for a status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusResolved:
		return "Resolved"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// EmergencyReport is the persisted record of one SOS event. AudioURL and
// AIAnalysis are filled in asynchronously by the server's voice pipeline; the
// client only displays what is present at fetch time.
type EmergencyReport struct {
	ID          int64     `json:"id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Description string    `json:"description"`
	AudioURL    string    `json:"audioUrl,omitempty"`
	AIAnalysis  string    `json:"aiAnalysis,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
