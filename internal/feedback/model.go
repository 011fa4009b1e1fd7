package feedback

import "time"

// Feedback rates the counterpart of a completed help request. At most
// one feedback exists per (help request, rater) pair.
type Feedback struct {
	ID            string    `json:"id"`
	HelpRequestID string    `json:"help_request_id"`
	RequestTitle  string    `json:"request_title"`
	RaterID       string    `json:"rater_id"`
	RaterName     string    `json:"rater_name"`
	RaterRole     string    `json:"rater_role"`
	RatedUserID   string    `json:"rated_user_id"`
	RatedUserRole string    `json:"rated_user_role"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateRequest is the body for POST /feedbacks.
type CreateRequest struct {
	HelpRequestID string `json:"help_request_id"`
	RaterID       string `json:"rater_id"`
	RaterName     string `json:"rater_name"`
	RaterRole     string `json:"rater_role"`
	RatedUserID   string `json:"rated_user_id"`
	RatedUserRole string `json:"rated_user_role"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// CreateResponse returns the stored feedback together with the rated
// user's updated running rating.
type CreateResponse struct {
	Feedback  *Feedback `json:"feedback"`
	NewRating struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
	} `json:"new_rating"`
}
