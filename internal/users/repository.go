package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/db"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, role, is_deleted, created_at, updated_at`

const summaryColumns = `u.id, u.name, u.email, u.role, u.is_deleted, u.created_at, u.updated_at,
	(SELECT COUNT(*) FROM audit_logs a WHERE a.user_id = u.id),
	(SELECT COUNT(*) FROM reports r WHERE r.user_id = u.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (User, error) {
	var (
		u    User
		role pgtype.Text
	)
	dest := append([]any{&u.ID, &u.Name, &u.Email, &role, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return User{}, err
	}
	if role.Valid {
		u.Role = rbac.Role(role.String)
	}
	return u, nil
}

func scanSummary(row rowScanner) (Summary, error) {
	var auditLogs, reports int64
	u, err := scanUser(row, &auditLogs, &reports)
	if err != nil {
		return Summary{}, err
	}
	return Summary{User: u, Counts: Counts{AuditLogs: int(auditLogs), Reports: int(reports)}}, nil
}

// LookupPrincipal implements rbac.PrincipalStore. Deactivated users resolve
// like missing ones.
func (r *Repository) LookupPrincipal(ctx context.Context, userID string) (rbac.Principal, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return rbac.Principal{}, rbac.ErrPrincipalNotFound
		}
		return rbac.Principal{}, err
	}
	return u.Principal(), nil
}

// Get returns a live user by id.
func (r *Repository) Get(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND is_deleted = FALSE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("users: get: %w", err)
	}
	return u, nil
}

// ExistsByEmail reports whether any account, deactivated ones included,
// holds the email.
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = $1)`, shared.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("users: exists by email: %w", err)
	}
	return exists, nil
}

// ListUsers returns every live user with counts, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+summaryColumns+` FROM users u WHERE u.is_deleted = FALSE ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	out := make([]Summary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSummary returns a live user with counts.
func (r *Repository) GetSummary(ctx context.Context, id string) (Summary, error) {
	s, err := scanSummary(r.pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM users u WHERE u.id = $1 AND u.is_deleted = FALSE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("users: get summary: %w", err)
	}
	return s, nil
}

// Create inserts a user.
func (r *Repository) Create(ctx context.Context, in NewUser) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns, shared.NewID(), in.Name, shared.NormalizeEmail(in.Email), in.PasswordHash, string(in.Role)))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return u, nil
}

// Update applies the non-nil changes to a live user.
func (r *Repository) Update(ctx context.Context, id string, c Changes) (User, error) {
	var email, role *string
	if c.Email != nil {
		normalized := shared.NormalizeEmail(*c.Email)
		email = &normalized
	}
	if c.Role != nil {
		value := string(*c.Role)
		role = &value
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET
	name = COALESCE($2, name),
	email = COALESCE($3, email),
	role = COALESCE($4, role),
	updated_at = NOW()
WHERE id = $1 AND is_deleted = FALSE
RETURNING `+userColumns, id, c.Name, email, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("users: update: %w", err)
	}
	return u, nil
}

// Deactivate soft deletes a live user.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("users: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ RepositoryPort      = (*Repository)(nil)
	_ rbac.PrincipalStore = (*Repository)(nil)
)
