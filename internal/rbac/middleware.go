package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// ErrPrincipalNotFound is returned by a PrincipalStore when the user no
// longer exists or has been deactivated.
var ErrPrincipalNotFound = errors.New("rbac: principal not found")

// PrincipalStore loads the authoritative user record for a session.
type PrincipalStore interface {
	LookupPrincipal(ctx context.Context, userID string) (Principal, error)
}

// Rejection is the terminal failure of a guard.
type Rejection struct {
	Status  int
	Message string
}

var (
	rejectUnauthenticated = &Rejection{Status: http.StatusUnauthorized, Message: "Authentication required"}
	rejectForbidden       = &Rejection{Status: http.StatusForbidden, Message: "Insufficient permissions"}
	rejectInternal        = &Rejection{Status: http.StatusInternalServerError, Message: "Internal server error"}
)

// Middleware wires RBAC authorization helpers for HTTP handlers. Every
// decision is made against the user record fetched for the current request;
// the role in the session snapshot is never consulted.
type Middleware struct {
	Store  PrincipalStore
	Logger *slog.Logger
	Now    func() time.Time
}

// Resolve turns the request session into a storage-sourced principal.
func (m Middleware) Resolve(r *http.Request) (Principal, *Rejection) {
	sess := shared.SessionFromContext(r.Context())
	userID := strings.TrimSpace(sess.UserID())
	if userID == "" {
		return Principal{}, rejectUnauthenticated
	}
	if sess.Expired(m.now()) {
		return Principal{}, rejectUnauthenticated
	}
	principal, err := m.Store.LookupPrincipal(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, rejectUnauthenticated
		}
		if m.Logger != nil {
			m.Logger.Error("rbac resolve principal", slog.String("user_id", userID), slog.Any("error", err))
		}
		return Principal{}, rejectInternal
	}
	return principal, nil
}

// RequireAuth admits any authenticated user.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.guard(func(Principal) bool { return true })(next)
}

// RequireAdmin admits only principals whose stored role is exactly ADMIN.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.guard(func(p Principal) bool { return p.Role == RoleAdmin })(next)
}

// RequireRole admits principals ranking at or above min.
func (m Middleware) RequireRole(min Role) func(http.Handler) http.Handler {
	return m.guard(func(p Principal) bool { return HasRoleLevel(p.Role, min) })
}

// RequirePermission ensures the current user has at least one of the required
// permissions. With no permissions it only requires authentication.
func (m Middleware) RequirePermission(perms ...Permission) func(http.Handler) http.Handler {
	return m.guard(func(p Principal) bool {
		if len(perms) == 0 {
			return true
		}
		return HasAnyPermission(p.Role, perms)
	})
}

// RequireAll ensures the current user has every required permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return m.guard(func(p Principal) bool { return HasAllPermissions(p.Role, perms) })
}

func (m Middleware) guard(allow func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, rejection := m.Resolve(r)
			if rejection == nil && !allow(principal) {
				rejection = rejectForbidden
			}
			if rejection != nil {
				httpx.Fail(w, rejection.Status, rejection.Message)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
