package graph

import (
	"strings"
	"time"

	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// User owns sessions and everything attached to them. All element and topic
// queries are scoped by the owning user's id.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	IsAdmin      bool       `json:"is_admin"`
	Disabled     bool       `json:"disabled"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// NewUser creates a user with a fresh id. The caller supplies an already
// hashed password.
func NewUser(email, passwordHash, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.NewValidationError("a valid email is required")
	}
	if passwordHash == "" {
		return nil, errors.NewValidationError("password hash is required")
	}
	return &User{
		ID:           NewUserID(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// TouchLogin records a successful login.
func (u *User) TouchLogin(at time.Time) {
	t := at.UTC()
	u.LastLogin = &t
}
