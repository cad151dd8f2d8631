package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/npcl-dashboard/npcl-dashboard/internal/audit/http"
	"github.com/npcl-dashboard/npcl-dashboard/internal/auth"
	"github.com/npcl-dashboard/npcl-dashboard/internal/observability"
	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/reports"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
	"github.com/npcl-dashboard/npcl-dashboard/internal/users"
	"github.com/npcl-dashboard/npcl-dashboard/internal/voicebot"
	"github.com/npcl-dashboard/npcl-dashboard/jobs"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(r *http.Request) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	ReportsHandler  *reports.Handler
	VoicebotHandler *voicebot.Handler
	AuditHandler    *audithttp.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	Health          map[string]HealthChecker
}

// NewRouter constructs the chi.Router with dashboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", healthz(params.Logger, params.Health))

	authLimit := 0
	if params.Config != nil {
		authLimit = params.Config.AuthRateLimit
	}
	r.Route("/auth", func(r chi.Router) {
		r.Use(AuthRateLimit(authLimit))
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/profile", params.UsersHandler.MountProfileRoutes)
		}
		params.AuthHandler.MountRoutes(r)
	})
	r.Route("/reports", func(r chi.Router) {
		if params.VoicebotHandler != nil {
			r.Route("/voicebot-calls", params.VoicebotHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
	})
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func healthz(logger *slog.Logger, checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(r); err != nil {
				healthy = false
				status[name] = "down"
				if logger != nil {
					logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
				}
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			httpx.JSON(w, http.StatusServiceUnavailable, httpx.Envelope{Success: false, Message: "Service unavailable", Data: status})
			return
		}
		httpx.OK(w, http.StatusOK, "ok", status)
	}
}
