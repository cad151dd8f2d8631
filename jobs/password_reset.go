package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/npcl-dashboard/npcl-dashboard/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ResetMailSender delivers a reset link by mail.
type ResetMailSender interface {
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// PasswordResetEmailJob delivers queued reset mails.
type PasswordResetEmailJob struct {
	Sender  ResetMailSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPasswordResetEmailJob wires dependencies for the mail handler.
func NewPasswordResetEmailJob(sender ResetMailSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *PasswordResetEmailJob {
	return &PasswordResetEmailJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle processes TaskPasswordResetEmail tasks. Malformed payloads are not
// retried; delivery failures are, up to MailMaxRetry.
func (j *PasswordResetEmailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sender == nil {
		return errors.New("password reset mail: handler not configured")
	}
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("password reset mail: decode: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskPasswordResetEmail)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Sender.SendPasswordReset(ctx, payload.To, payload.Name, payload.Token); err != nil {
		j.logger().Error("send password reset", slog.Any("error", err))
		return err
	}
	j.logger().Info("password reset mail sent")
	return nil
}

func (j *PasswordResetEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPasswordResetEmail))
	}
	return slog.Default().With(slog.String("job", TaskPasswordResetEmail))
}

func (j *PasswordResetEmailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
