package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the timeline from audit_logs.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the timeline repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineSelect = `SELECT a.id, a.created_at, COALESCE(a.user_id, ''), COALESCE(u.name, ''), COALESCE(u.email, ''),
	a.action, a.resource, a.details, a.ip_address, a.user_agent
FROM audit_logs a
LEFT JOIN users u ON u.id = a.user_id`

// Window returns at most limit rows starting at offset, newest first.
func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	where, args := filters.where()
	args = append(args, limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", timelineSelect, where, len(args)-1, len(args))
	return r.query(ctx, query, args...)
}

// All returns every matching row, newest first, capped at max.
func (r *PGRepository) All(ctx context.Context, filters TimelineFilters, max int) ([]TimelineRow, error) {
	where, args := filters.where()
	args = append(args, max)
	query := fmt.Sprintf("%s%s ORDER BY a.created_at DESC, a.id DESC LIMIT $%d", timelineSelect, where, len(args))
	return r.query(ctx, query, args...)
}

func (r *PGRepository) query(ctx context.Context, query string, args ...any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline query: %w", err)
	}
	return pgx.CollectRows(rows, scanRow)
}

func scanRow(row pgx.CollectableRow) (TimelineRow, error) {
	var (
		out       TimelineRow
		details   []byte
		ip, agent pgtype.Text
	)
	if err := row.Scan(&out.ID, &out.At, &out.UserID, &out.UserName, &out.UserEmail, &out.Action, &out.Resource, &details, &ip, &agent); err != nil {
		return TimelineRow{}, err
	}
	out.Details = map[string]any{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &out.Details); err != nil {
			return TimelineRow{}, fmt.Errorf("audit: decode details %d: %w", out.ID, err)
		}
	}
	out.IPAddress = ip.String
	out.UserAgent = agent.String
	return out, nil
}

// where renders the filters as a predicate over audit_logs a.
func (f TimelineFilters) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !f.From.IsZero() {
		add("a.created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("a.created_at < $%d", f.To.AddDate(0, 0, 1))
	}
	if v := strings.TrimSpace(f.UserID); v != "" {
		add("a.user_id = $%d", v)
	}
	if v := strings.TrimSpace(f.Action); v != "" {
		add("a.action = $%d", v)
	}
	if v := strings.TrimSpace(f.Resource); v != "" {
		add("a.resource = $%d", v)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
