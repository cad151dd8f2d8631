package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/npcl-dashboard/npcl-dashboard/internal/jobs"
)

// PurgeCron runs the cleanup hourly.
const PurgeCron = "@hourly"

// ExpiredPurger deletes reset tokens and session rows that expired before now.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (tokens int64, sessions int64, err error)
}

// PurgeExpiredJob removes expired auth state.
type PurgeExpiredJob struct {
	Store   ExpiredPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPurgeExpiredJob wires dependencies for the purge handler.
func NewPurgeExpiredJob(store ExpiredPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurgeExpiredJob {
	return &PurgeExpiredJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskPurgeExpired tasks.
func (j *PurgeExpiredJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("purge expired: handler not configured")
	}
	tracker := j.metrics().Track(TaskPurgeExpired)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	started := j.now()
	tokens, sessions, err := j.Store.PurgeExpired(ctx, started)
	if err != nil {
		j.logger().Error("purge expired", slog.Any("error", err))
		return err
	}
	j.metrics().AddPurged("reset_tokens", tokens)
	j.metrics().AddPurged("sessions", sessions)
	j.logger().Info("purged expired auth state",
		slog.Int64("reset_tokens", tokens),
		slog.Int64("sessions", sessions),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *PurgeExpiredJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPurgeExpired))
	}
	return slog.Default().With(slog.String("job", TaskPurgeExpired))
}

func (j *PurgeExpiredJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PurgeExpiredJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
