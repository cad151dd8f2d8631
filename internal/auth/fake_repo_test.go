package auth

import (
	"context"
	"errors"
	"time"

	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

type memRepo struct {
	users       map[string]User
	resets      map[string]ResetToken
	sessions    map[string]string
	createCalls int
	findErr     error
}

func newMemRepo(users ...User) *memRepo {
	m := &memRepo{users: map[string]User{}, resets: map[string]ResetToken{}, sessions: map[string]string{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (User, error) {
	if m.findErr != nil {
		return User{}, m.findErr
	}
	for _, u := range m.users {
		if u.Email == shared.NormalizeEmail(email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memRepo) FindByID(_ context.Context, id string) (User, error) {
	if m.findErr != nil {
		return User{}, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memRepo) CreateUser(_ context.Context, reg Registration) (User, error) {
	m.createCalls++
	u := User{ID: shared.NewID(), Name: reg.Name, Email: reg.Email, PasswordHash: reg.PasswordHash, Role: reg.Role, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memRepo) UpdatePassword(_ context.Context, userID, hash string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[userID] = u
	return nil
}

func (m *memRepo) CreateSession(_ context.Context, id, userID string, _ time.Time, _, _ string) error {
	m.sessions[id] = userID
	return nil
}

func (m *memRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memRepo) ReplaceResetToken(_ context.Context, token ResetToken) error {
	for hash, existing := range m.resets {
		if existing.UserID == token.UserID {
			delete(m.resets, hash)
		}
	}
	m.resets[token.TokenHash] = token
	return nil
}

func (m *memRepo) ResetPassword(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	token, ok := m.resets[tokenHash]
	if !ok || !now.Before(token.ExpiresAt) {
		return "", ErrResetTokenInvalid
	}
	u := m.users[token.UserID]
	u.PasswordHash = passwordHash
	m.users[token.UserID] = u
	delete(m.resets, tokenHash)
	return token.UserID, nil
}

func (m *memRepo) PurgeExpired(_ context.Context, now time.Time) (int64, int64, error) {
	var n int64
	for hash, token := range m.resets {
		if !now.Before(token.ExpiresAt) {
			delete(m.resets, hash)
			n++
		}
	}
	return n, 0, nil
}

type captureMailer struct {
	calls  int
	email  string
	token  string
	result bool
}

func (c *captureMailer) SendPasswordResetEmail(_ context.Context, email, token, _ string) bool {
	c.calls++
	c.email = email
	c.token = token
	return c.result
}

type auditSink struct {
	logs []shared.AuditLog
	err  error
}

func (a *auditSink) Record(_ context.Context, l shared.AuditLog) error {
	a.logs = append(a.logs, l)
	return a.err
}

func (a *auditSink) actions() []string {
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

var errStorage = errors.New("connection reset")
