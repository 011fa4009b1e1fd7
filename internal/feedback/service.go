package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/validation"
)

// Service contains feedback business logic.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a feedback service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// NextAverage is the incremental mean used to maintain a user's
// running rating; it mirrors the SQL update in Create.
func NextAverage(average float64, count, rating int) (float64, int) {
	return (average*float64(count) + float64(rating)) / float64(count+1), count + 1
}

// Create stores feedback for a completed help request and updates the
// rated user's running rating in a single atomic UPDATE.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	switch {
	case req.HelpRequestID == "" || req.RaterID == "" || req.RatedUserID == "":
		return nil, apperr.Validation("help request, rater and rated user are required")
	case !validation.ValidateRating(req.Rating):
		return nil, apperr.Validation("rating must be between 1 and 5")
	case strings.TrimSpace(req.Comment) == "":
		return nil, apperr.Validation("comment is required")
	}

	var status, title string
	err := s.db.QueryRow(ctx,
		`SELECT status,title FROM help_requests WHERE id=$1`, req.HelpRequestID).
		Scan(&status, &title)
	if err != nil {
		return nil, apperr.NotFound("help request")
	}
	if status != "completed" {
		return nil, apperr.Conflict("feedback can only be submitted for completed requests")
	}

	var exists bool
	_ = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM feedbacks WHERE help_request_id=$1 AND rater_id=$2)`,
		req.HelpRequestID, req.RaterID).Scan(&exists)
	if exists {
		return nil, apperr.Conflict("feedback already submitted for this request")
	}

	f := &Feedback{
		ID:            uuid.New().String(),
		HelpRequestID: req.HelpRequestID,
		RequestTitle:  title,
		RaterID:       req.RaterID,
		RaterName:     req.RaterName,
		RaterRole:     req.RaterRole,
		RatedUserID:   req.RatedUserID,
		RatedUserRole: req.RatedUserRole,
		Rating:        req.Rating,
		Comment:       strings.TrimSpace(req.Comment),
		CreatedAt:     time.Now().UTC(),
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO feedbacks
		 (id,help_request_id,request_title,rater_id,rater_name,rater_role,
		  rated_user_id,rated_user_role,rating,comment,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		f.ID, f.HelpRequestID, f.RequestTitle, f.RaterID, f.RaterName, f.RaterRole,
		f.RatedUserID, f.RatedUserRole, f.Rating, f.Comment, f.CreatedAt)
	if err != nil {
		// The unique constraint is the backstop for concurrent submissions.
		return nil, apperr.Conflict("feedback already submitted for this request")
	}

	resp := &CreateResponse{Feedback: f}
	err = s.db.QueryRow(ctx,
		`UPDATE users
		 SET rating_avg = (rating_avg*rating_count + $2) / (rating_count + 1),
		     rating_count = rating_count + 1,
		     updated_at = NOW()
		 WHERE id=$1
		 RETURNING rating_avg, rating_count`,
		req.RatedUserID, req.Rating).
		Scan(&resp.NewRating.Average, &resp.NewRating.Count)
	if err != nil {
		return nil, apperr.Internal("update rating", err)
	}

	return resp, nil
}

// ListForUser returns feedback a user has given, or received when
// rated is true. Newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, rated bool) ([]Feedback, error) {
	column := "rater_id"
	if rated {
		column = "rated_user_id"
	}
	return s.list(ctx,
		`SELECT id,help_request_id,request_title,rater_id,rater_name,rater_role,
		        rated_user_id,rated_user_role,rating,comment,created_at
		 FROM feedbacks WHERE `+column+`=$1 ORDER BY created_at DESC`, userID)
}

// ListAll returns every feedback, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Feedback, error) {
	return s.list(ctx,
		`SELECT id,help_request_id,request_title,rater_id,rater_name,rater_role,
		        rated_user_id,rated_user_role,rating,comment,created_at
		 FROM feedbacks ORDER BY created_at DESC`)
}

func (s *Service) list(ctx context.Context, query string, args ...any) ([]Feedback, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list feedbacks", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.HelpRequestID, &f.RequestTitle,
			&f.RaterID, &f.RaterName, &f.RaterRole,
			&f.RatedUserID, &f.RatedUserRole, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, apperr.Internal("scan feedback", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
