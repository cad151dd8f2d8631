package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/db"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, reg Registration) (User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	ReplaceResetToken(ctx context.Context, token ResetToken) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, is_deleted, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		password pgtype.Text
		role     pgtype.Text
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &password, &role, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.PasswordHash = password.String
	if role.Valid {
		u.Role = rbac.Role(role.String)
	}
	return u, nil
}

// FindByEmail fetches a user by case-folded email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`, shared.NormalizeEmail(email)))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("auth: find by email: %w", err)
	}
	return u, err
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("auth: find by id: %w", err)
	}
	return u, err
}

// CreateUser inserts a self-registered account.
func (r *PGRepository) CreateUser(ctx context.Context, reg Registration) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (id, name, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns, shared.NewID(), reg.Name, shared.NormalizeEmail(reg.Email), reg.PasswordHash, string(reg.Role)))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return u, nil
}

// UpdatePassword stores a new password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID,
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true},
		pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true},
		pgtype.Text{String: ip, Valid: ip != ""},
		pgtype.Text{String: ua, Valid: ua != ""},
	)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return err
}

// ReplaceResetToken drops every outstanding token of the user and stores the
// new one in the same transaction, so at most one token is ever live.
func (r *PGRepository) ReplaceResetToken(ctx context.Context, token ResetToken) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, token.UserID); err != nil {
			return fmt.Errorf("auth: drop reset tokens: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO password_resets (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
			shared.NewID(), token.UserID, token.TokenHash, token.ExpiresAt.UTC()); err != nil {
			return fmt.Errorf("auth: insert reset token: %w", err)
		}
		return nil
	})
}

// ResetPassword consumes a live token and sets the new password hash. It
// returns the id of the user whose password changed.
func (r *PGRepository) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	var userID string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var expiresAt time.Time
		err := tx.QueryRow(ctx, `SELECT pr.user_id, pr.expires_at
FROM password_resets pr
JOIN users u ON u.id = pr.user_id AND u.is_deleted = FALSE
WHERE pr.token_hash = $1
FOR UPDATE OF pr`, tokenHash).Scan(&userID, &expiresAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrResetTokenInvalid
			}
			return fmt.Errorf("auth: load reset token: %w", err)
		}
		if !now.Before(expiresAt) {
			// Expired rows are left for the purge job.
			return ErrResetTokenInvalid
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash); err != nil {
			return fmt.Errorf("auth: set password: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("auth: consume reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// PurgeExpired deletes expired reset tokens and session mirrors.
func (r *PGRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	resets, err := r.pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("auth: purge reset tokens: %w", err)
	}
	sessions, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return resets.RowsAffected(), 0, fmt.Errorf("auth: purge sessions: %w", err)
	}
	return resets.RowsAffected(), sessions.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
