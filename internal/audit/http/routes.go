package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the timeline and its CSV export. Both need
// system.audit; exports are additionally rate limited per user.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)
	r.Use(h.rbac.RequirePermission(rbac.PermSystemAudit))
	r.Get("/", h.handleTimeline)
	r.With(limiter).Get("/export", h.handleExport)
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := rbac.PrincipalFromContext(r.Context()); ok && p.ID != "" {
		return "user:" + p.ID, nil
	}
	if id := shared.SessionFromContext(r.Context()).UserID(); id != "" {
		return "user:" + id, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
