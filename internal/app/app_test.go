package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npcl-dashboard/npcl-dashboard/internal/auth"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

func validConfig() Config {
	return Config{
		AppEnv:        "development",
		SessionSecret: "secret",
		CSRFSecret:    "csrf",
		SessionTTL:    time.Hour,
		ResetTokenTTL: time.Hour,
		LogFormat:     "pretty",
		CSRFEnforce:   true,
		AuthRateLimit: 3,
		RateLimit:     1000,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	missing := validConfig()
	missing.CSRFSecret = ""
	assert.Error(t, missing.Validate())

	prod := validConfig()
	prod.AppEnv = "production"
	assert.Error(t, prod.Validate(), "short secret in production")
	prod.SessionSecret = strings.Repeat("x", 32)
	assert.NoError(t, prod.Validate())
	assert.True(t, prod.IsProduction())

	badFormat := validConfig()
	badFormat.LogFormat = "xml"
	assert.Error(t, badFormat.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "c5rf")
	t.Setenv("RESET_TOKEN_TTL", "30m")
	t.Setenv("BCRYPT_COST", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.True(t, cfg.CSRFEnforce)
}

func TestLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func newTestRouter(t *testing.T, cfg Config, health map[string]HealthChecker) (http.Handler, *shared.SessionManager, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "npcl_session", cfg.SessionSecret, cfg.SessionTTL, false)
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	guard := rbac.Middleware{Store: staticStore{}}
	router := NewRouter(RouterParams{
		Config:         &cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(nil, nil, sessions, csrf, guard),
		Health:         health,
	})
	return router, sessions, client
}

type staticStore struct{}

func (staticStore) LookupPrincipal(_ context.Context, id string) (rbac.Principal, error) {
	return rbac.Principal{ID: id, Role: rbac.RoleViewer}, nil
}

func TestRouterHealthAndFallbacks(t *testing.T) {
	router, _, _ := newTestRouter(t, validConfig(), map[string]HealthChecker{
		"postgres": func(*http.Request) error { return nil },
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"postgres":"ok"`)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterHealthReportsOutage(t *testing.T) {
	router, _, _ := newTestRouter(t, validConfig(), map[string]HealthChecker{
		"redis": func(*http.Request) error { return errors.New("dial tcp: refused") },
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redis":"down"`)
	assert.NotContains(t, rr.Body.String(), "refused")
}

func TestAuthRateLimitCountsOnlyPosts(t *testing.T) {
	router, _, _ := newTestRouter(t, validConfig(), nil)

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{}")))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestCSRFMiddleware(t *testing.T) {
	csrf := shared.NewCSRFManager("csrf")
	sessions := shared.NewSessionManager(nil, "sid", "secret", time.Hour, false)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := CSRFMiddleware(csrf, nil)(ok)

	serve := func(method string, sess *shared.Session, token string) int {
		req := httptest.NewRequest(method, "/reports", nil)
		if sess != nil {
			req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
		}
		if token != "" {
			req.Header.Set(shared.CSRFHeader, token)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	anonymous := &shared.Session{}
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, anonymous, ""))
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, nil, ""))

	loggedIn := &shared.Session{}
	sessions.Login(loggedIn, shared.SessionUser{ID: "u1"})
	token, err := csrf.EnsureToken(context.Background(), loggedIn)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet, loggedIn, ""))
	assert.Equal(t, http.StatusForbidden, serve(http.MethodPost, loggedIn, ""))
	assert.Equal(t, http.StatusForbidden, serve(http.MethodDelete, loggedIn, "forged"))
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPut, loggedIn, token))
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
