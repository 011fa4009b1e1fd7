package notifications

import "time"

// Notification types, persisted verbatim.
const (
	TypeRequestCreated   = "request_created"
	TypeRequestAccepted  = "request_accepted"
	TypeRequestCompleted = "request_completed"
	TypeFeedbackReceived = "feedback_received"
	TypeGeneral          = "general"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	RelatedID   *string   `json:"related_id,omitempty"`
	RelatedType *string   `json:"related_type,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
