package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAnonymousSessionIsNotPersisted(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, req, sess))
	assert.Nil(t, sessionCookie(t, rr, sm.CookieName()))
	assert.Empty(t, mr.Keys())
}

func TestLoginPersistsSnapshotAndReloads(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	sm.Login(sess, SessionUser{ID: "u1", Email: "a@example.com", Name: "A", Role: "VIEWER"})
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))

	cookie := sessionCookie(t, rr, sm.CookieName())
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: cookie.Value})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	user, ok := loaded.User()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "VIEWER", user.Role)
	assert.False(t, loaded.Expired(time.Now()))
}

func TestLoginRotatesExistingSessionID(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	first := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	sess, err := sm.Load(ctx, first)
	require.NoError(t, err)
	sess.Set(CSRFSessionKey, "token")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, first, sess))
	oldID := sess.ID
	assert.True(t, mr.Exists("session:"+oldID))

	second := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	second.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldID})
	loaded, err := sm.Load(ctx, second)
	require.NoError(t, err)
	sm.Login(loaded, SessionUser{ID: "u1"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), second, loaded))

	assert.NotEqual(t, oldID, loaded.ID)
	assert.False(t, mr.Exists("session:"+oldID))
	assert.True(t, mr.Exists("session:"+loaded.ID))
	assert.Equal(t, "token", loaded.Get(CSRFSessionKey))
}

func TestUnknownCookieGetsFreshID(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
	assert.Equal(t, "", sess.UserID())
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Login(sess, SessionUser{ID: "u1"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	assert.False(t, mr.Exists("session:"+sess.ID))
	cookie := sessionCookie(t, rr, sm.CookieName())
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestSessionExpiryUsesClock(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sm.WithClock(func() time.Time { return base })
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sm.Login(sess, SessionUser{ID: "u1"})

	assert.False(t, sess.Expired(base.Add(59*time.Minute)))
	assert.True(t, sess.Expired(base.Add(time.Hour)))
}

func TestMiddlewareCommitsBeforeBody(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	handler := sm.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Login(SessionFromContext(r.Context()), SessionUser{ID: "u1"})
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	cookie := sessionCookie(t, rr, "test_session")
	require.NotNil(t, cookie)
	assert.True(t, mr.Exists("session:"+cookie.Value))
}
