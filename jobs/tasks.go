package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPasswordResetEmail delivers a password reset link.
	TaskPasswordResetEmail = "mail:password_reset"
	// TaskPurgeExpired removes expired reset tokens and session rows.
	TaskPurgeExpired = "auth:purge_expired"
)

// MailMaxRetry bounds redelivery of reset mail.
const MailMaxRetry = 3

// PasswordResetEmailPayload describes the information required to send a
// reset email. Token is the raw token; it never touches the database.
type PasswordResetEmailPayload struct {
	To    string `json:"to"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Validate reports whether the payload can be delivered.
func (p PasswordResetEmailPayload) Validate() error {
	if strings.TrimSpace(p.To) == "" {
		return errors.New("jobs: password reset payload missing recipient")
	}
	if strings.TrimSpace(p.Token) == "" {
		return errors.New("jobs: password reset payload missing token")
	}
	return nil
}

// NewPasswordResetEmailTask constructs an Asynq task.
func NewPasswordResetEmailTask(payload PasswordResetEmailPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPasswordResetEmail, data, asynq.Queue(QueueDefault), asynq.MaxRetry(MailMaxRetry)), nil
}

// NewPurgeExpiredTask builds the cleanup task scheduled by the worker cron.
func NewPurgeExpiredTask() *asynq.Task {
	return asynq.NewTask(TaskPurgeExpired, nil, asynq.Queue(QueueDefault))
}
