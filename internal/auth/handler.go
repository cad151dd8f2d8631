package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	rbac           rbac.Middleware
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		rbac:           guard,
		validator:      httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.showLogout)
	r.Get("/csrf", h.handleCSRF)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Post("/reset-password", h.handleResetPassword)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Post("/logout", h.handleLogout)
		r.Get("/session", h.handleSession)
		r.Post("/change-password", h.handleChangePassword)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, h.logger, httpx.InvalidInput(err))
		return false
	}
	if err := httpx.Validate(h.validator, target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	return true
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if !h.decode(w, r, &in) {
		return
	}
	user, err := h.service.Register(r.Context(), in, shared.AuditFromRequest(r, "", "", "", nil))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User created successfully", AccountOf(user))
}

type loginResult struct {
	User      rbac.Principal `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, httpx.InvalidInput(err))
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	user, err := h.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	principal := rbac.Principal{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
	h.sessionManager.Login(sess, shared.SessionUser{ID: user.ID, Email: user.Email, Name: user.Name, Role: string(user.Role)})
	h.service.RecordLogin(r.Context(), user, sess.ID, sess.ExpiresAt(), shared.AuditFromRequest(r, "", "", "", nil))
	httpx.OK(w, http.StatusOK, "Login successful", loginResult{User: principal, Timestamp: time.Now().UTC()})
}

type logoutGuidance struct {
	Endpoint string   `json:"endpoint"`
	Method   string   `json:"method"`
	Notes    []string `json:"notes"`
}

func (h *Handler) showLogout(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, "POST to this endpoint with a valid session and CSRF token to sign out.", logoutGuidance{
		Endpoint: "/auth/logout",
		Method:   http.MethodPost,
		Notes: []string{
			"The session cookie is cleared and the server side session deleted.",
			"Fetch a token from /auth/csrf and send it in the " + shared.CSRFHeader + " header.",
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	h.service.RecordLogout(r.Context(), principal.ID, sess.ID, shared.AuditFromRequest(r, "", "", "", nil))
	h.sessionManager.Destroy(sess)
	httpx.OK(w, http.StatusOK, "Logged out successfully", nil)
}

type sessionInfo struct {
	User      rbac.Principal `json:"user"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	httpx.OK(w, http.StatusOK, "", sessionInfo{User: principal, ExpiresAt: sess.ExpiresAt()})
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]string{"csrfToken": token})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var in ChangePasswordInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), principal.ID, in, shared.AuditFromRequest(r, "", "", "", nil)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in ForgotPasswordInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.ForgotPassword(r.Context(), in.Email); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, ForgotPasswordMessage, nil)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in ResetPasswordInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), in, shared.AuditFromRequest(r, "", "", "", nil)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Password has been reset successfully", nil)
}
