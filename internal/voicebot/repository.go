package voicebot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const callColumns = `id, cli, received_at, language, query_type, tickets_identified, transferred_to_ivr, duration_seconds, call_resolution_status`

func scanCall(row pgx.Row) (Call, error) {
	var (
		c                               Call
		language, queryType, resolution pgtype.Text
		duration                        pgtype.Int4
		tickets                         int32
	)
	if err := row.Scan(&c.ID, &c.CLI, &c.ReceivedAt, &language, &queryType, &tickets, &c.TransferredToIVR, &duration, &resolution); err != nil {
		return Call{}, err
	}
	c.TicketsIdentified = int(tickets)
	c.Language = textPtr(language)
	c.QueryType = textPtr(queryType)
	c.CallResolutionStatus = textPtr(resolution)
	if duration.Valid {
		d := int(duration.Int32)
		c.DurationSeconds = &d
	}
	return c, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// Count returns the number of calls matching f.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM voicebot_calls`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("voicebot: count: %w", err)
	}
	return int(total), nil
}

// List returns matching calls, newest first. limit <= 0 returns all rows.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Call, error) {
	where, args := f.where()
	query := `SELECT ` + callColumns + ` FROM voicebot_calls` + where + ` ORDER BY received_at DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("voicebot: list: %w", err)
	}
	defer rows.Close()
	out := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get loads one call.
func (r *Repository) Get(ctx context.Context, id string) (Call, error) {
	c, err := scanCall(r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM voicebot_calls WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, fmt.Errorf("voicebot: get: %w", err)
	}
	return c, nil
}

var _ RepositoryPort = (*Repository)(nil)
