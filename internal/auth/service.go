package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// ForgotPasswordMessage is returned for every well-formed forgot-password
// request, whether or not the account exists.
const ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// ResetMailer delivers reset links. A false return is logged and otherwise ignored.
type ResetMailer interface {
	SendPasswordResetEmail(ctx context.Context, email, token, name string) bool
}

// EventObserver counts authentication outcomes.
type EventObserver interface {
	ObserveAuthEvent(event, outcome string)
}

// Options tunes Service.
type Options struct {
	ResetTokenTTL time.Duration
	Now           func() time.Time
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	hasher   Hasher
	mailer   ResetMailer
	audit    shared.AuditRecorder
	observer EventObserver
	logger   *slog.Logger
	resetTTL time.Duration
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher Hasher, mailer ResetMailer, audit shared.AuditRecorder, observer EventObserver, logger *slog.Logger, opts Options) *Service {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		mailer:   mailer,
		audit:    audit,
		observer: observer,
		logger:   logger,
		resetTTL: opts.ResetTokenTTL,
		now:      opts.Now,
	}
}

// RegisterInput is the self-service registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,max=255,nodoubledot,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN OPERATOR VIEWER"`
}

// LoginInput is the credential login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordInput is the authenticated password change request.
type ChangePasswordInput struct {
	CurrentPassword    string `json:"currentPassword" validate:"required,min=6"`
	NewPassword        string `json:"newPassword" validate:"required,min=8"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,min=8"`
}

// ForgotPasswordInput starts a reset.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput completes a reset.
type ResetPasswordInput struct {
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=6"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,min=6,eqfield=NewPassword"`
}

// Register creates a VIEWER account. Requests for any other role are refused:
// elevated roles are handed out by an administrator.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta shared.AuditLog) (User, error) {
	if in.Role != "" && rbac.Role(in.Role) != rbac.RoleViewer {
		s.observe("register", "forbidden")
		return User{}, httpx.NewError(httpx.ErrForbidden, "Only VIEWER accounts can be self-registered")
	}
	email := shared.NormalizeEmail(in.Email)
	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.observe("register", "conflict")
		return User{}, httpx.NewError(httpx.ErrDuplicate, "User with this email already exists")
	case !errors.Is(err, ErrUserNotFound):
		return User{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, Registration{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         rbac.RoleViewer,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.observe("register", "conflict")
			return User{}, httpx.NewError(httpx.ErrDuplicate, "User with this email already exists")
		}
		return User{}, err
	}
	meta.UserID = user.ID
	meta.Action = "register"
	meta.Resource = "auth"
	meta.Details = map[string]any{"email": user.Email}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	s.observe("register", "success")
	return user, nil
}

// Authenticate validates email/password credentials. Every failure that is
// not a storage error collapses into shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.observe("login", "failure")
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.IsDeleted || !s.hasher.Verify(password, user.PasswordHash) {
		s.observe("login", "failure")
		return User{}, shared.ErrInvalidCredentials
	}
	s.observe("login", "success")
	return user, nil
}

// RecordLogin mirrors the session row and writes the login audit entry.
// Neither failure affects the login.
func (s *Service) RecordLogin(ctx context.Context, user User, sessionID string, expiresAt time.Time, meta shared.AuditLog) {
	if err := s.repo.CreateSession(ctx, sessionID, user.ID, expiresAt, meta.IPAddress, meta.UserAgent); err != nil {
		s.logger.Warn("register session", slog.Any("error", err))
	}
	meta.UserID = user.ID
	meta.Action = "api_login"
	meta.Resource = "auth"
	meta.Details = map[string]any{"method": "api", "endpoint": "/auth/login"}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
}

// RecordLogout removes the session mirror and writes the logout audit entry.
func (s *Service) RecordLogout(ctx context.Context, userID, sessionID string, meta shared.AuditLog) {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		s.logger.Warn("remove session", slog.Any("error", err))
	}
	meta.UserID = userID
	meta.Action = "logout"
	meta.Resource = "auth"
	meta.Details = map[string]any{"endpoint": "/auth/logout"}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	s.observe("logout", "success")
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput, meta shared.AuditLog) error {
	if in.NewPassword != in.ConfirmNewPassword {
		return httpx.NewError(httpx.ErrValidation, "New password and confirm password do not match")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if err != nil || user.IsDeleted || !user.HasPassword() {
		return httpx.NewError(httpx.ErrNotFound, "User not found or password not set")
	}
	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		s.observe("change_password", "failure")
		return httpx.NewError(httpx.ErrValidation, "Current password is incorrect")
	}
	if s.hasher.Verify(in.NewPassword, user.PasswordHash) {
		return httpx.NewError(httpx.ErrValidation, "New password must be different from current password")
	}
	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	meta.UserID = user.ID
	meta.Action = "password_change"
	meta.Resource = "user"
	meta.Details = map[string]any{"email": user.Email}
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	s.observe("change_password", "success")
	return nil
}

// ForgotPassword issues a reset token when the account exists. The caller
// answers with ForgotPasswordMessage in both cases.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.IsDeleted {
		return nil
	}
	token, err := GenerateResetToken()
	if err != nil {
		return err
	}
	err = s.repo.ReplaceResetToken(ctx, ResetToken{
		UserID:    user.ID,
		TokenHash: HashResetToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	})
	if err != nil {
		return fmt.Errorf("auth: store reset token: %w", err)
	}
	if s.mailer == nil || !s.mailer.SendPasswordResetEmail(ctx, user.Email, token, user.Name) {
		s.logger.Warn("password reset email failed to send", slog.String("user_id", user.ID))
	}
	s.observe("forgot_password", "issued")
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput, meta shared.AuditLog) error {
	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	userID, err := s.repo.ResetPassword(ctx, HashResetToken(in.Token), hash, s.now())
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			s.observe("reset_password", "invalid")
			return httpx.NewError(httpx.ErrValidation, "Invalid or expired reset token")
		}
		return err
	}
	meta.UserID = userID
	meta.Action = "password_reset"
	meta.Resource = "user"
	shared.RecordBestEffort(ctx, s.audit, s.logger, meta)
	s.observe("reset_password", "success")
	return nil
}

func (s *Service) observe(event, outcome string) {
	if s.observer != nil {
		s.observer.ObserveAuthEvent(event, outcome)
	}
}
