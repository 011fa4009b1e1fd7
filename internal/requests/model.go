package requests

import (
	"time"

	"helpmatch-service/internal/geo"
)

// Status enumerates the help-request lifecycle states. The strings are
// persisted verbatim and must never change.
const (
	StatusOpen       = "open"
	StatusAccepted   = "accepted"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// TimelineEntry records one lifecycle event. The timeline is
// append-only and always starts with an "open" entry.
type TimelineEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// VolunteerLocation is the assigned volunteer's last reported position.
type VolunteerLocation struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignedVolunteer is set exactly once, by a successful claim.
type AssignedVolunteer struct {
	VolunteerID     string             `json:"volunteer_id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone"`
	AcceptedAt      time.Time          `json:"accepted_at"`
	CurrentLocation *VolunteerLocation `json:"current_location,omitempty"`
}

// HelpRequest is the central record of the system.
type HelpRequest struct {
	ID                string             `json:"id"`
	RequesterID       string             `json:"requester_id"`
	RequesterName     string             `json:"requester_name"`
	RequesterEmail    string             `json:"requester_email"`
	RequesterPhone    string             `json:"requester_phone"`
	RequesterCity     string             `json:"requester_city"`
	Location          geo.Point          `json:"location"`
	Address           *string            `json:"address,omitempty"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	Urgency           string             `json:"urgency"`
	Status            string             `json:"status"`
	AssignedVolunteer *AssignedVolunteer `json:"assigned_volunteer,omitempty"`
	MeetLink          *string            `json:"meet_link,omitempty"`
	Timeline          []TimelineEntry    `json:"timeline"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CreateRequest is the body for POST /requests.
type CreateRequest struct {
	RequesterID    string   `json:"requester_id"`
	RequesterName  string   `json:"requester_name"`
	RequesterEmail string   `json:"requester_email"`
	RequesterPhone string   `json:"requester_phone"`
	RequesterCity  string   `json:"requester_city"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Urgency        string   `json:"urgency"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	Address        *string  `json:"address,omitempty"`
}

// VolunteerInfo identifies the volunteer attempting a claim.
type VolunteerInfo struct {
	VolunteerID string `json:"volunteer_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// AdvanceRequest is the body for PATCH /requests/:id/status.
type AdvanceRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// LocationUpdate is the body for PATCH /requests/:id/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ClaimOutcome is the result of a claim attempt. Losing the race is a
// normal outcome, not an error: Claimed is false and Request holds the
// current state of the record.
type ClaimOutcome struct {
	Claimed bool         `json:"claimed"`
	Request *HelpRequest `json:"request"`
}
