package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence contract the lifecycle service requires.
// Claim and AdvanceStatus are compare-and-swap operations: they apply
// the write only if the row is still in an expected status and report
// whether they did. They must never partially apply.
type Store interface {
	Create(ctx context.Context, r *HelpRequest) error
	GetByID(ctx context.Context, id string) (*HelpRequest, error)
	ListOpen(ctx context.Context, city, category string) ([]HelpRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]HelpRequest, error)
	ListByVolunteer(ctx context.Context, volunteerID string) ([]HelpRequest, error)

	// Claim atomically moves an open request to accepted, assigns the
	// volunteer and mints the meet link if none exists yet. Returns
	// false when the row was not in "open" (or does not exist).
	Claim(ctx context.Context, id string, vol AssignedVolunteer, meetLink string, entry TimelineEntry) (bool, error)

	// AdvanceStatus atomically moves a request to the target status if
	// its current status is one of allowedFrom. completedAt is written
	// only when non-nil.
	AdvanceStatus(ctx context.Context, id, to string, allowedFrom []string, entry TimelineEntry, completedAt *time.Time) (bool, error)

	// SetVolunteerLocation overwrites the assigned volunteer's live
	// position. Returns false unless the request is accepted or
	// in-progress with a volunteer assigned.
	SetVolunteerLocation(ctx context.Context, id string, loc VolunteerLocation) (bool, error)

	IncrementVolunteerCompleted(ctx context.Context, volunteerID string) error
}

const requestColumns = `id,requester_id,requester_name,requester_email,requester_phone,requester_city,
	lat,lng,address,title,description,category,urgency,status,
	volunteer_id,volunteer_name,volunteer_email,volunteer_phone,accepted_at,
	volunteer_lat,volunteer_lng,volunteer_loc_updated_at,
	meet_link,timeline,completed_at,created_at,updated_at`

// PostgresStore implements Store on a pgx pool. Every transition is a
// single conditional UPDATE so the status check and the write share
// one atomic statement.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed request store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *HelpRequest) error {
	timeline, err := json.Marshal(r.Timeline)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO help_requests
		 (id,requester_id,requester_name,requester_email,requester_phone,requester_city,
		  lat,lng,address,title,description,category,urgency,status,timeline,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)`,
		r.ID, r.RequesterID, r.RequesterName, r.RequesterEmail, r.RequesterPhone, r.RequesterCity,
		r.Location.Lat, r.Location.Lng, r.Address, r.Title, r.Description, r.Category, r.Urgency,
		r.Status, string(timeline), r.CreatedAt)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*HelpRequest, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM help_requests WHERE id=$1`, id)
	r, err := scanRequest(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListOpen(ctx context.Context, city, category string) ([]HelpRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM help_requests WHERE status='open'`
	args := []any{}
	if city != "" {
		args = append(args, city)
		query += fmt.Sprintf(" AND requester_city=$%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category=$%d", len(args))
	}
	query += ` ORDER BY CASE urgency
		WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
		created_at DESC`
	return s.list(ctx, query, args...)
}

func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID string) ([]HelpRequest, error) {
	return s.list(ctx,
		`SELECT `+requestColumns+` FROM help_requests WHERE requester_id=$1 ORDER BY created_at DESC`,
		requesterID)
}

func (s *PostgresStore) ListByVolunteer(ctx context.Context, volunteerID string) ([]HelpRequest, error) {
	return s.list(ctx,
		`SELECT `+requestColumns+` FROM help_requests WHERE volunteer_id=$1 ORDER BY created_at DESC`,
		volunteerID)
}

func (s *PostgresStore) Claim(ctx context.Context, id string, vol AssignedVolunteer, meetLink string, entry TimelineEntry) (bool, error) {
	appended, err := marshalEntry(entry)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE help_requests
		 SET status=$2,
		     volunteer_id=$3, volunteer_name=$4, volunteer_email=$5, volunteer_phone=$6,
		     accepted_at=$7,
		     meet_link=COALESCE(meet_link, $8),
		     timeline = timeline || $9::jsonb,
		     updated_at=NOW()
		 WHERE id=$1 AND status=$10`,
		id, StatusAccepted,
		vol.VolunteerID, vol.Name, vol.Email, vol.Phone,
		vol.AcceptedAt, meetLink, appended, StatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) AdvanceStatus(ctx context.Context, id, to string, allowedFrom []string, entry TimelineEntry, completedAt *time.Time) (bool, error) {
	appended, err := marshalEntry(entry)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE help_requests
		 SET status=$2,
		     timeline = timeline || $3::jsonb,
		     completed_at=COALESCE($4, completed_at),
		     updated_at=NOW()
		 WHERE id=$1 AND status = ANY($5)`,
		id, to, appended, completedAt, allowedFrom)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetVolunteerLocation(ctx context.Context, id string, loc VolunteerLocation) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE help_requests
		 SET volunteer_lat=$2, volunteer_lng=$3, volunteer_loc_updated_at=$4, updated_at=NOW()
		 WHERE id=$1 AND status = ANY($5) AND volunteer_id IS NOT NULL`,
		id, loc.Lat, loc.Lng, loc.UpdatedAt, []string{StatusAccepted, StatusInProgress})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) IncrementVolunteerCompleted(ctx context.Context, volunteerID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET completed_requests = completed_requests + 1, updated_at=NOW() WHERE id=$1`,
		volunteerID)
	return err
}

// ---- helpers ----

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]HelpRequest, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HelpRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*HelpRequest, error) {
	var r HelpRequest
	var volID, volName, volEmail, volPhone *string
	var acceptedAt, volLocUpdatedAt *time.Time
	var volLat, volLng *float64

	err := row.Scan(&r.ID, &r.RequesterID, &r.RequesterName, &r.RequesterEmail, &r.RequesterPhone, &r.RequesterCity,
		&r.Location.Lat, &r.Location.Lng, &r.Address, &r.Title, &r.Description, &r.Category, &r.Urgency, &r.Status,
		&volID, &volName, &volEmail, &volPhone, &acceptedAt,
		&volLat, &volLng, &volLocUpdatedAt,
		&r.MeetLink, &r.Timeline, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if volID != nil {
		r.AssignedVolunteer = &AssignedVolunteer{
			VolunteerID: *volID,
			Name:        deref(volName),
			Email:       deref(volEmail),
			Phone:       deref(volPhone),
		}
		if acceptedAt != nil {
			r.AssignedVolunteer.AcceptedAt = *acceptedAt
		}
		if volLat != nil && volLng != nil && volLocUpdatedAt != nil {
			r.AssignedVolunteer.CurrentLocation = &VolunteerLocation{
				Lat: *volLat, Lng: *volLng, UpdatedAt: *volLocUpdatedAt,
			}
		}
	}
	return &r, nil
}

// marshalEntry encodes a single timeline entry as a one-element JSON
// array so it can be appended with the || operator.
func marshalEntry(entry TimelineEntry) (string, error) {
	data, err := json.Marshal([]TimelineEntry{entry})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
