package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// Handler manages user management and profile endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers the admin user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuth).Get("/roles", h.listRoles)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin)
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Patch("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})
}

// MountProfileRoutes registers the self-service profile routes.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAuth)
	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
	r.Delete("/", h.deleteProfile)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	views := make([]View, 0, len(list))
	for _, s := range list {
		views = append(views, SummaryView(s))
	}
	httpx.OK(w, http.StatusOK, "Users fetched successfully", views)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, httpx.InvalidInput(err))
		return
	}
	if err := CheckCreate(in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := httpx.Validate(h.validator, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	created, err := h.service.CreateUser(r.Context(), actor, in, shared.AuditFromRequest(r, "", "", "", nil))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	view := ViewOf(created)
	view.UpdatedAt = nil
	httpx.OK(w, http.StatusCreated, "User created successfully", view)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, httpx.InvalidInput(err))
		return
	}
	if err := httpx.Validate(h.validator, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	updated, err := h.service.UpdateUser(r.Context(), actor, chi.URLParam(r, "id"), in, shared.AuditFromRequest(r, "", "", "", nil))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User updated successfully", ViewOf(updated))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), actor, chi.URLParam(r, "id"), shared.AuditFromRequest(r, "", "", "", nil)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	httpx.OK(w, http.StatusOK, "", AssignableRoles(actor.Role))
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	profile, err := h.service.Profile(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", SummaryView(profile))
}

type profilePatch struct {
	Name string `json:"name"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	var in profilePatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, httpx.InvalidInput(err))
		return
	}
	updated, err := h.service.UpdateProfile(r.Context(), actor.ID, in.Name)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Profile updated successfully", ViewOf(updated))
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeactivateSelf(r.Context(), actor.ID, shared.AuditFromRequest(r, "", "", "", nil)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if h.sessions != nil {
		h.sessions.Destroy(shared.SessionFromContext(r.Context()))
	}
	httpx.OK(w, http.StatusOK, "Your account has been deactivated", nil)
}
