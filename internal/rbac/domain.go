package rbac

import "context"

// Role is the coarse authorization level stored on a user.
type Role string

// Known roles.
const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleViewer   Role = "VIEWER"
)

// Roles lists every known role from highest to lowest rank.
var Roles = []Role{RoleAdmin, RoleOperator, RoleViewer}

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// ParseRole returns the role named by s and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRank[r]
	return r, ok
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank is the position of r in the hierarchy; 0 for unknown or empty roles.
func (r Role) Rank() int {
	return roleRank[r]
}

// DisplayName returns the human label of the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleOperator:
		return "Operator"
	case RoleViewer:
		return "Viewer"
	default:
		return "Unknown"
	}
}

// Description summarises what the role may do.
func (r Role) Description() string {
	switch r {
	case RoleAdmin:
		return "Full system access including user management and system configuration"
	case RoleOperator:
		return "Can manage power units, maintenance, and generate reports"
	case RoleViewer:
		return "Read-only access to dashboard and reports"
	default:
		return "No description available"
	}
}

// Principal describes the authenticated actor. Role always comes from
// storage for the current request and is empty when the stored user has none.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal resolved by the guard.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
