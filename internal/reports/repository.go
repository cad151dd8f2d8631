package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

const reportColumns = `id, user_id, title, content, created_at, updated_at`

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return r, err
}

// ListByOwner returns the owner's reports, newest first.
func (r *Repository) ListByOwner(ctx context.Context, userID string) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("reports: list: %w", err)
	}
	defer rows.Close()
	out := make([]Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// Get loads a report by id regardless of owner.
func (r *Repository) Get(ctx context.Context, id string) (Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Report{}, fmt.Errorf("reports: get: %w", err)
	}
	return rep, err
}

// Create inserts a report.
func (r *Repository) Create(ctx context.Context, userID string, in CreateInput) (Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, `INSERT INTO reports (id, user_id, title, content) VALUES ($1, $2, $3, $4) RETURNING `+reportColumns,
		shared.NewID(), userID, in.Title, in.Content))
	if err != nil {
		return Report{}, fmt.Errorf("reports: create: %w", err)
	}
	return rep, nil
}

// Update overwrites title and content.
func (r *Repository) Update(ctx context.Context, id, title, content string) (Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, `UPDATE reports SET title = $2, content = $3, updated_at = NOW() WHERE id = $1 RETURNING `+reportColumns,
		id, title, content))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Report{}, fmt.Errorf("reports: update: %w", err)
	}
	return rep, err
}

// Delete removes a report.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reports: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
