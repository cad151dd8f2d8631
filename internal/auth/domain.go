package auth

import (
	"errors"
	"time"

	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
)

var (
	// ErrUserNotFound is returned when no account matches a lookup.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("auth: email taken")
	// ErrResetTokenInvalid covers unknown, consumed and expired reset tokens.
	ErrResetTokenInvalid = errors.New("auth: reset token invalid")
)

// User represents an account as seen by the credential flows.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether a password hash is stored.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Account is the public projection of a User.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccountOf strips credential material from u.
func AccountOf(u User) Account {
	return Account{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Registration carries a new self-service account.
type Registration struct {
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
}

// ResetToken is a stored forgot-password token.
type ResetToken struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}
