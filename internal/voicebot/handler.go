package voicebot

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// Handler exposes the voicebot call listing and exports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: guard}
}

// MountRoutes registers the call routes; every route needs reports.view.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequirePermission(rbac.PermReportsView))
	r.Get("/", h.list)
	r.Get("/exports", h.export)
	r.Get("/{id}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	calls, meta, err := h.service.List(r.Context(), filter, shared.ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: calls, Meta: meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	call, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", call)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	calls, err := h.service.Export(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if len(calls) == 0 {
		httpx.OK(w, http.StatusOK, "No data found", []Call{})
		return
	}
	var buf bytes.Buffer
	if err := Write(&buf, format, calls); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+format.Filename())
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
