package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	UserID    string
	Action    string
	Resource  string
	Details   map[string]any
	IPAddress string
	UserAgent string
	At        time.Time
}

// AuditRecorder is implemented by AuditLogger and by test fakes.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Resource == "" {
		return errors.New("audit log requires action/resource")
	}
	details := log.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (user_id, action, resource, details, ip_address, user_agent, created_at) VALUES (NULLIF($1, ''), $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), COALESCE($7, NOW()))`,
		log.UserID, log.Action, log.Resource, detailsJSON, log.IPAddress, log.UserAgent, at)
	return err
}

// AuditFromRequest prefills the request metadata of an entry.
func AuditFromRequest(r *http.Request, userID, action, resource string, details map[string]any) AuditLog {
	return AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ClientIP(r),
		UserAgent: UserAgent(r),
	}
}

// RecordBestEffort writes an audit entry and only logs a failure. Audit
// writes never change the outcome of the request that triggered them.
func RecordBestEffort(ctx context.Context, recorder AuditRecorder, logger *slog.Logger, log AuditLog) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, log); err != nil && logger != nil {
		logger.Warn("audit log failed", slog.String("action", log.Action), slog.String("resource", log.Resource), slog.Any("error", err))
	}
}
