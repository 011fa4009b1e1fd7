package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/jwt"
	rredis "helpmatch-service/pkg/redis"
	"helpmatch-service/pkg/validation"
)

var log = logrus.WithField("prefix", "users")

const userColumns = `id,name,email,phone,address,city,role,lat,lng,skills,
	is_available,rating_avg,rating_count,completed_requests,created_at`

// Service contains account business logic for requesters and volunteers.
type Service struct {
	db    *pgxpool.Pool
	redis *rredis.Client
}

// NewService creates a user service.
func NewService(db *pgxpool.Pool, redis *rredis.Client) *Service {
	return &Service{db: db, redis: redis}
}

// Register creates a new account and returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	switch {
	case !validation.ValidateName(req.Name):
		return nil, apperr.Validation("name must be 2-200 characters")
	case !validation.ValidateEmail(req.Email):
		return nil, apperr.Validation("invalid email")
	case !validation.ValidatePhone(req.Phone):
		return nil, apperr.Validation("invalid phone number")
	case !validation.ValidatePassword(req.Password):
		return nil, apperr.Validation("password must be 6-100 characters")
	case req.Role != RoleRequester && req.Role != RoleVolunteer:
		return nil, apperr.Validation("role must be 'requester' or 'volunteer'")
	case !validation.ValidateSkills(req.Skills):
		return nil, apperr.Validation("unknown skill tag")
	}

	var exists bool
	_ = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)", req.Email).Scan(&exists)
	if exists {
		return nil, apperr.Conflict("email already registered")
	}
	_ = s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE phone=$1)", req.Phone).Scan(&exists)
	if exists {
		return nil, apperr.Conflict("phone already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	id := uuid.New().String()
	skills := req.Skills
	if skills == nil {
		skills = []string{}
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO users (id,name,email,phone,password_hash,address,city,role,skills)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		id, req.Name, req.Email, req.Phone, string(hash), req.Address, req.City, req.Role, skills)
	if err != nil {
		return nil, apperr.Internal("create user", err)
	}

	token, err := jwt.Generate(id, req.Email, req.Role)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}

	return &AuthResponse{
		Token: token,
		User: &User{
			ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone,
			Address: req.Address, City: req.City, Role: req.Role,
			Skills: skills, IsAvailable: true,
		},
	}, nil
}

// Login authenticates a user and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var u User
	var hash string
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+`,password_hash FROM users WHERE email=$1`, req.Email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.City, &u.Role,
			&u.Lat, &u.Lng, &u.Skills, &u.IsAvailable,
			&u.Rating.Average, &u.Rating.Count, &u.CompletedRequests, &u.CreatedAt, &hash)
	if err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	return &AuthResponse{Token: token, User: &u}, nil
}

// GetByID fetches a single user by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.City, &u.Role,
			&u.Lat, &u.Lng, &u.Skills, &u.IsAvailable,
			&u.Rating.Average, &u.Rating.Count, &u.CompletedRequests, &u.CreatedAt)
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}

// UpdateProfile applies the non-empty fields of upd. Skills only apply
// to volunteers.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != "" {
		if !validation.ValidateName(upd.Name) {
			return nil, apperr.Validation("name must be 2-200 characters")
		}
		u.Name = upd.Name
	}
	if upd.Phone != "" {
		if !validation.ValidatePhone(upd.Phone) {
			return nil, apperr.Validation("invalid phone number")
		}
		u.Phone = upd.Phone
	}
	if upd.Address != "" {
		u.Address = upd.Address
	}
	if upd.City != "" {
		u.City = upd.City
	}
	if upd.Skills != nil && u.Role == RoleVolunteer {
		if !validation.ValidateSkills(upd.Skills) {
			return nil, apperr.Validation("unknown skill tag")
		}
		u.Skills = upd.Skills
	}

	_, err = s.db.Exec(ctx,
		`UPDATE users SET name=$2,phone=$3,address=$4,city=$5,skills=$6,updated_at=NOW() WHERE id=$1`,
		id, u.Name, u.Phone, u.Address, u.City, u.Skills)
	if err != nil {
		return nil, apperr.Internal("update profile", err)
	}
	return u, nil
}

// UpdateLocation stores the user's position and mirrors available
// volunteers into the Redis GEO set.
func (s *Service) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	if !validation.ValidateCoordinates(lat, lng) {
		return apperr.Validation("invalid coordinates")
	}

	var role string
	var available bool
	err := s.db.QueryRow(ctx,
		`UPDATE users SET lat=$2,lng=$3,updated_at=NOW() WHERE id=$1 RETURNING role,is_available`,
		id, lat, lng).Scan(&role, &available)
	if err != nil {
		return apperr.NotFound("user")
	}

	if role == RoleVolunteer && available {
		if err := s.redis.SetVolunteerLocation(ctx, id, lat, lng); err != nil {
			log.Warnf("geo mirror failed for %s: %v", id, err)
		}
	}
	return nil
}

// ToggleAvailability flips a volunteer's availability and returns the
// new value. Unavailable volunteers drop out of the GEO set so nearby
// queries never surface them.
func (s *Service) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	var available bool
	var lat, lng *float64
	err := s.db.QueryRow(ctx,
		`UPDATE users SET is_available = NOT is_available, updated_at=NOW()
		 WHERE id=$1 AND role=$2 RETURNING is_available,lat,lng`,
		id, RoleVolunteer).Scan(&available, &lat, &lng)
	if err != nil {
		return false, apperr.NotFound("volunteer")
	}

	if available && lat != nil && lng != nil {
		if err := s.redis.SetVolunteerLocation(ctx, id, *lat, *lng); err != nil {
			log.Warnf("geo mirror failed for %s: %v", id, err)
		}
	} else if !available {
		if err := s.redis.RemoveVolunteerLocation(ctx, id); err != nil {
			log.Warnf("geo unmirror failed for %s: %v", id, err)
		}
	}
	return available, nil
}

// GetNearby returns volunteer IDs within radiusKm of the given point.
func (s *Service) GetNearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	return s.redis.GetNearbyVolunteers(ctx, lat, lng, radiusKm, 10)
}

// AvailableVolunteers lists available volunteers, optionally filtered
// by city and by a skill tag.
func (s *Service) AvailableVolunteers(ctx context.Context, city, category string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role=$1 AND is_available=TRUE`
	args := []any{RoleVolunteer}

	if city != "" {
		args = append(args, city)
		query += fmt.Sprintf(" AND city=$%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND $%d = ANY(skills)", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("list volunteers", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.City, &u.Role,
			&u.Lat, &u.Lng, &u.Skills, &u.IsAvailable,
			&u.Rating.Average, &u.Rating.Count, &u.CompletedRequests, &u.CreatedAt); err != nil {
			return nil, apperr.Internal("scan volunteer", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
