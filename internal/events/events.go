package events

// RequestCreatedEvent is published to request.created.
type RequestCreatedEvent struct {
	RequestID     string `json:"request_id"`
	RequesterID   string `json:"requester_id"`
	RequesterName string `json:"requester_name"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Urgency       string `json:"urgency"`
	City          string `json:"city"`
	CreatedAt     string `json:"created_at"`
}

// RequestAcceptedEvent is published to request.accepted.
type RequestAcceptedEvent struct {
	RequestID      string `json:"request_id"`
	Title          string `json:"title"`
	RequesterID    string `json:"requester_id"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	RequesterPhone string `json:"requester_phone"`
	VolunteerID    string `json:"volunteer_id"`
	VolunteerName  string `json:"volunteer_name"`
	VolunteerPhone string `json:"volunteer_phone"`
	MeetLink       string `json:"meet_link"`
	AcceptedAt     string `json:"accepted_at"`
}

// RequestCompletedEvent is published to request.completed.
type RequestCompletedEvent struct {
	RequestID      string `json:"request_id"`
	Title          string `json:"title"`
	RequesterID    string `json:"requester_id"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	VolunteerID    string `json:"volunteer_id"`
	VolunteerName  string `json:"volunteer_name"`
	VolunteerEmail string `json:"volunteer_email"`
	CompletedAt    string `json:"completed_at"`
}
