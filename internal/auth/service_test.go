package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

var testHasher = NewHasher(bcrypt.MinCost)

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := testHasher.Hash(plain)
	require.NoError(t, err)
	return h
}

func newTestService(repo Repository, mailer ResetMailer, audit shared.AuditRecorder, now time.Time) *Service {
	return NewService(repo, testHasher, mailer, audit, nil, nil, Options{ResetTokenTTL: time.Hour, Now: func() time.Time { return now }})
}

func TestRegisterDefaultsToViewer(t *testing.T) {
	repo := newMemRepo()
	sink := &auditSink{}
	svc := newTestService(repo, nil, sink, time.Now())

	u, err := svc.Register(context.Background(), RegisterInput{Name: "John Doe", Email: " John@Example.com ", Password: "password123"}, shared.AuditLog{})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleViewer, u.Role)
	assert.Equal(t, "john@example.com", u.Email)
	assert.True(t, testHasher.Verify("password123", u.PasswordHash))
	assert.Equal(t, []string{"register"}, sink.actions())
}

func TestRegisterDuplicateSkipsCreate(t *testing.T) {
	repo := newMemRepo(User{ID: "u1", Email: "john@example.com"})
	svc := newTestService(repo, nil, nil, time.Now())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "John", Email: "JOHN@example.com", Password: "password123"}, shared.AuditLog{})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httpx.StatusFor(err))
	assert.Zero(t, repo.createCalls)
}

func TestRegisterRefusesElevatedRole(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil, nil, time.Now())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "password123", Role: "ADMIN"}, shared.AuditLog{})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httpx.StatusFor(err))
	assert.Zero(t, repo.createCalls)

	u, err := svc.Register(context.Background(), RegisterInput{Name: "Vic", Email: "vic@example.com", Password: "password123", Role: "VIEWER"}, shared.AuditLog{})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleViewer, u.Role)
}

func TestAuthenticate(t *testing.T) {
	repo := newMemRepo(
		User{ID: "u1", Email: "john@example.com", PasswordHash: hashed(t, "password123"), Role: rbac.RoleViewer},
		User{ID: "u2", Email: "gone@example.com", PasswordHash: hashed(t, "password123"), IsDeleted: true},
		User{ID: "u3", Email: "nopass@example.com"},
	)
	svc := newTestService(repo, nil, nil, time.Now())
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "JOHN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	for _, tc := range []struct{ email, password string }{
		{"john@example.com", "wrong-password"},
		{"nobody@example.com", "password123"},
		{"gone@example.com", "password123"},
		{"nopass@example.com", ""},
	} {
		_, err := svc.Authenticate(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials, tc.email)
	}

	repo.findErr = errStorage
	_, err = svc.Authenticate(ctx, "john@example.com", "password123")
	assert.ErrorIs(t, err, errStorage)
}

func TestChangePassword(t *testing.T) {
	repo := newMemRepo(
		User{ID: "u1", Email: "john@example.com", PasswordHash: hashed(t, "oldpassword")},
		User{ID: "u2", Email: "sso@example.com"},
	)
	sink := &auditSink{}
	svc := newTestService(repo, nil, sink, time.Now())
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		in     ChangePasswordInput
		status int
		msg    string
	}{
		{"mismatch", "u1", ChangePasswordInput{"oldpassword", "newpassword1", "newpassword2"}, http.StatusBadRequest, "New password and confirm password do not match"},
		{"missing user", "nope", ChangePasswordInput{"oldpassword", "newpassword1", "newpassword1"}, http.StatusNotFound, "User not found or password not set"},
		{"no password", "u2", ChangePasswordInput{"oldpassword", "newpassword1", "newpassword1"}, http.StatusNotFound, "User not found or password not set"},
		{"wrong current", "u1", ChangePasswordInput{"badpassword", "newpassword1", "newpassword1"}, http.StatusBadRequest, "Current password is incorrect"},
		{"same as current", "u1", ChangePasswordInput{"oldpassword", "oldpassword", "oldpassword"}, http.StatusBadRequest, "New password must be different from current password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, tc.userID, tc.in, shared.AuditLog{})
			require.Error(t, err)
			assert.Equal(t, tc.status, httpx.StatusFor(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
	assert.Empty(t, sink.logs)

	require.NoError(t, svc.ChangePassword(ctx, "u1", ChangePasswordInput{"oldpassword", "newpassword1", "newpassword1"}, shared.AuditLog{}))
	assert.True(t, testHasher.Verify("newpassword1", repo.users["u1"].PasswordHash))
	assert.Equal(t, []string{"password_change"}, sink.actions())
}

func TestChangePasswordSurvivesAuditFailure(t *testing.T) {
	repo := newMemRepo(User{ID: "u1", Email: "john@example.com", PasswordHash: hashed(t, "oldpassword")})
	svc := newTestService(repo, nil, &auditSink{err: errStorage}, time.Now())
	assert.NoError(t, svc.ChangePassword(context.Background(), "u1", ChangePasswordInput{"oldpassword", "newpassword1", "newpassword1"}, shared.AuditLog{}))
}

func TestForgotPasswordOnlyIssuesForKnownEmail(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo(User{ID: "u1", Name: "John", Email: "john@example.com"})
	mailer := &captureMailer{result: true}
	svc := newTestService(repo, mailer, nil, now)

	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, repo.resets)
	assert.Zero(t, mailer.calls)

	require.NoError(t, svc.ForgotPassword(context.Background(), "john@example.com"))
	require.Len(t, repo.resets, 1)
	assert.Equal(t, 1, mailer.calls)
	stored, ok := repo.resets[HashResetToken(mailer.token)]
	require.True(t, ok, "only the token hash is stored")
	assert.Equal(t, now.Add(time.Hour), stored.ExpiresAt)
}

func TestForgotPasswordLatestTokenWins(t *testing.T) {
	repo := newMemRepo(User{ID: "u1", Email: "john@example.com"})
	mailer := &captureMailer{}
	svc := newTestService(repo, mailer, nil, time.Now())

	require.NoError(t, svc.ForgotPassword(context.Background(), "john@example.com"))
	first := mailer.token
	require.NoError(t, svc.ForgotPassword(context.Background(), "john@example.com"))
	require.Len(t, repo.resets, 1)
	_, ok := repo.resets[HashResetToken(first)]
	assert.False(t, ok)
}

func TestForgotPasswordStorageError(t *testing.T) {
	repo := newMemRepo()
	repo.findErr = errStorage
	svc := newTestService(repo, nil, nil, time.Now())
	assert.ErrorIs(t, svc.ForgotPassword(context.Background(), "john@example.com"), errStorage)
}

func TestResetPasswordSingleUseAndExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemRepo(User{ID: "u1", Email: "john@example.com", PasswordHash: hashed(t, "oldpassword")})
	mailer := &captureMailer{result: true}
	clock := now
	svc := NewService(repo, testHasher, mailer, nil, nil, nil, Options{ResetTokenTTL: time.Hour, Now: func() time.Time { return clock }})

	require.NoError(t, svc.ForgotPassword(context.Background(), "john@example.com"))
	in := ResetPasswordInput{Token: mailer.token, NewPassword: "brandnew1", ConfirmNewPassword: "brandnew1"}

	require.NoError(t, svc.ResetPassword(context.Background(), in, shared.AuditLog{}))
	assert.True(t, testHasher.Verify("brandnew1", repo.users["u1"].PasswordHash))

	err := svc.ResetPassword(context.Background(), in, shared.AuditLog{})
	assert.Equal(t, http.StatusBadRequest, httpx.StatusFor(err))

	require.NoError(t, svc.ForgotPassword(context.Background(), "john@example.com"))
	clock = now.Add(2 * time.Hour)
	err = svc.ResetPassword(context.Background(), ResetPasswordInput{Token: mailer.token, NewPassword: "another1", ConfirmNewPassword: "another1"}, shared.AuditLog{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or expired reset token")
}
