package users

import (
	"errors"
	"time"

	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
)

var (
	// ErrNotFound is returned when no live user matches.
	ErrNotFound = errors.New("users: not found")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("users: email taken")
)

// User represents a user account for management.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      rbac.Role
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal projects the stored record onto the authorization principal.
// A NULL role stays empty.
func (u User) Principal() rbac.Principal {
	return rbac.Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Counts holds the number of rows owned by a user.
type Counts struct {
	AuditLogs int `json:"auditLogs"`
	Reports   int `json:"reports"`
}

// Summary is a user together with its activity counts.
type Summary struct {
	User
	Counts Counts
}

// NewUser carries the columns needed to insert a user.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
}

// Changes lists the columns an admin may patch; nil fields stay untouched.
type Changes struct {
	Name  *string
	Email *string
	Role  *rbac.Role
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Role == nil
}

// View is the JSON shape of a user. Password material never appears here.
type View struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      rbac.Role  `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Count     *Counts    `json:"_count,omitempty"`
}

// ViewOf renders u.
func ViewOf(u User) View {
	updated := u.UpdatedAt
	return View{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: &updated}
}

// SummaryView renders s including counts.
func SummaryView(s Summary) View {
	v := ViewOf(s.User)
	counts := s.Counts
	v.Count = &counts
	return v
}

// RoleOption describes an assignable role.
type RoleOption struct {
	Value       rbac.Role `json:"value"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}
