package users

import "time"

// Roles an account can register with.
const (
	RoleRequester = "requester"
	RoleVolunteer = "volunteer"
)

// Rating is a running average over all feedback directed at a user.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// User represents a requester or volunteer account.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	PasswordHash      string    `json:"-"`
	Address           string    `json:"address"`
	City              string    `json:"city"`
	Role              string    `json:"role"`
	Lat               *float64  `json:"lat,omitempty"`
	Lng               *float64  `json:"lng,omitempty"`
	Skills            []string  `json:"skills"`
	IsAvailable       bool      `json:"is_available"`
	Rating            Rating    `json:"rating"`
	CompletedRequests int       `json:"completed_requests"`
	CreatedAt         time.Time `json:"created_at"`
}

// RegisterRequest is the body for POST /users/register.
type RegisterRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password"`
	Address  string   `json:"address"`
	City     string   `json:"city"`
	Role     string   `json:"role"`
	Skills   []string `json:"skills,omitempty"`
}

// LoginRequest is the body for POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the body for PATCH /users/:id. Empty fields keep
// their current value.
type ProfileUpdate struct {
	Name    string   `json:"name,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	Skills  []string `json:"skills,omitempty"`
}

// LocationUpdate is the body for PATCH /users/:id/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}
