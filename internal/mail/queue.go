package mail

import (
	"context"
	"log/slog"

	"github.com/npcl-dashboard/npcl-dashboard/jobs"
)

// Enqueuer hands reset mails to the job queue; *jobs.Client satisfies it.
type Enqueuer interface {
	EnqueuePasswordResetEmail(ctx context.Context, payload jobs.PasswordResetEmailPayload) error
}

// QueueMailer defers reset mail delivery to the worker.
type QueueMailer struct {
	queue  Enqueuer
	logger *slog.Logger
}

// NewQueueMailer builds a QueueMailer.
func NewQueueMailer(queue Enqueuer, logger *slog.Logger) *QueueMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueMailer{queue: queue, logger: logger}
}

// SendPasswordResetEmail enqueues the mail and reports whether it was accepted.
func (m *QueueMailer) SendPasswordResetEmail(ctx context.Context, email, token, name string) bool {
	if m == nil || m.queue == nil {
		return false
	}
	err := m.queue.EnqueuePasswordResetEmail(ctx, jobs.PasswordResetEmailPayload{To: email, Name: name, Token: token})
	if err != nil {
		m.logger.Error("enqueue password reset email", slog.Any("error", err))
		return false
	}
	return true
}
