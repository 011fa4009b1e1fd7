package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"helpmatch-service/pkg/apperr"
)

// Service persists and queries in-app notifications.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a notification service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Create stores one notification.
func (s *Service) Create(ctx context.Context, userID, userEmail, typ, title, message string, relatedID, relatedType *string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications (id,user_id,user_email,type,title,message,related_id,related_type,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.New().String(), userID, userEmail, typ, title, message, relatedID, relatedType, time.Now().UTC())
	return err
}

// ListForUser returns a user's notifications, newest first, capped at 50.
func (s *Service) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	query := `SELECT id,user_id,user_email,type,title,message,related_id,related_type,is_read,created_at
		 FROM notifications WHERE user_id=$1`
	if unreadOnly {
		query += ` AND is_read=FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT 50`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperr.Internal("list notifications", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.UserEmail, &n.Type, &n.Title, &n.Message,
			&n.RelatedID, &n.RelatedType, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, apperr.Internal("scan notification", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1`, id)
	if err != nil {
		return apperr.Internal("mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}

// MarkAllRead flags every unread notification of a user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND is_read=FALSE`, userID)
	if err != nil {
		return apperr.Internal("mark notifications read", err)
	}
	return nil
}
