package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (User, error)
	GetSummary(ctx context.Context, id string) (Summary, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]Summary, error)
	Create(ctx context.Context, in NewUser) (User, error)
	Update(ctx context.Context, id string, c Changes) (User, error)
	Deactivate(ctx context.Context, id string) error
}

// PasswordHasher hashes new passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	hasher PasswordHasher
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher PasswordHasher, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, audit: audit, logger: logger}
}

// CreateInput is the admin create-user request.
type CreateInput struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"max=255,nodoubledot,email"`
	Password string `json:"password" validate:"min=6"`
	Role     string `json:"role"`
}

// UpdateInput is the admin patch-user request.
type UpdateInput struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,max=255,nodoubledot,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=ADMIN OPERATOR VIEWER"`
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]Summary, error) {
	return s.repo.ListUsers(ctx)
}

// CheckCreate runs the presence and role checks that precede format
// validation of a create request.
func CheckCreate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" || in.Role == "" {
		return httpx.NewError(httpx.ErrValidation, "Name, email, password, and role are required")
	}
	if _, ok := rbac.ParseRole(in.Role); !ok {
		return httpx.NewError(httpx.ErrValidation, "Invalid role specified")
	}
	return nil
}

// CreateUser provisions an account on behalf of actor.
func (s *Service) CreateUser(ctx context.Context, actor rbac.Principal, in CreateInput, meta shared.AuditLog) (User, error) {
	if err := CheckCreate(in); err != nil {
		return User{}, err
	}
	role := rbac.Role(in.Role)
	if !rbac.CanAssign(actor.Role, role) {
		return User{}, httpx.NewError(httpx.ErrForbidden, "You cannot assign this role")
	}
	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, httpx.NewError(httpx.ErrDuplicate, "User with this email already exists")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	created, err := s.repo.Create(ctx, NewUser{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, httpx.NewError(httpx.ErrDuplicate, "User with this email already exists")
		}
		return User{}, err
	}
	meta.UserID = actor.ID
	meta.Action = "create"
	meta.Resource = "user"
	meta.Details = map[string]any{
		"createdUserId":    created.ID,
		"createdUserEmail": created.Email,
		"createdUserRole":  created.Role,
	}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	return created, nil
}

// UpdateUser patches another user's account.
func (s *Service) UpdateUser(ctx context.Context, actor rbac.Principal, id string, in UpdateInput, meta shared.AuditLog) (User, error) {
	var changes Changes
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		changes.Name = &name
	}
	changes.Email = in.Email
	if in.Role != nil {
		role := rbac.Role(*in.Role)
		if id == actor.ID && role != actor.Role {
			return User{}, httpx.NewError(httpx.ErrForbidden, "You cannot change your own role")
		}
		if !rbac.CanAssign(actor.Role, role) {
			return User{}, httpx.NewError(httpx.ErrForbidden, "You cannot assign this role")
		}
		changes.Role = &role
	}
	if changes.Empty() {
		return User{}, httpx.NewError(httpx.ErrValidation, "No changes provided")
	}
	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return User{}, httpx.NewError(httpx.ErrNotFound, "User not found")
		case errors.Is(err, ErrEmailTaken):
			return User{}, httpx.NewError(httpx.ErrDuplicate, "User with this email already exists")
		}
		return User{}, err
	}
	meta.UserID = actor.ID
	meta.Action = "update"
	meta.Resource = "user"
	meta.Details = map[string]any{"updatedUserId": updated.ID, "role": updated.Role}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	return updated, nil
}

// DeleteUser deactivates another user's account.
func (s *Service) DeleteUser(ctx context.Context, actor rbac.Principal, id string, meta shared.AuditLog) error {
	if id == actor.ID {
		return httpx.NewError(httpx.ErrForbidden, "You cannot delete your own account")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.NewError(httpx.ErrNotFound, "User not found")
		}
		return err
	}
	meta.UserID = actor.ID
	meta.Action = "delete"
	meta.Resource = "user"
	meta.Details = map[string]any{"deletedUserId": id}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	return nil
}

// AssignableRoles lists the roles current may hand out with their labels.
func AssignableRoles(current rbac.Role) []RoleOption {
	roles := rbac.AvailableRoles(current)
	out := make([]RoleOption, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleOption{Value: r, Label: r.DisplayName(), Description: r.Description()})
	}
	return out
}

// Profile returns the caller's own account with counts.
func (s *Service) Profile(ctx context.Context, userID string) (Summary, error) {
	summary, err := s.repo.GetSummary(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Summary{}, httpx.NewError(httpx.ErrNotFound, "User not found")
		}
		return Summary{}, err
	}
	return summary, nil
}

// UpdateProfile renames the caller.
func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, httpx.NewError(httpx.ErrValidation, "Name is required")
	}
	updated, err := s.repo.Update(ctx, userID, Changes{Name: &name})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, httpx.NewError(httpx.ErrNotFound, "User not found")
		}
		return User{}, err
	}
	return updated, nil
}

// DeactivateSelf soft deletes the caller's own account.
func (s *Service) DeactivateSelf(ctx context.Context, userID string, meta shared.AuditLog) error {
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.NewError(httpx.ErrNotFound, "User not found")
		}
		return err
	}
	meta.UserID = userID
	meta.Action = "delete"
	meta.Resource = "user"
	meta.Details = map[string]any{"selfDeleted": true}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	return nil
}
