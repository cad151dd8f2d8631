package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/npcl-dashboard/npcl-dashboard/internal/jobs"
)

type recordingSender struct {
	to, name, token string
	calls           int
	err             error
}

func (s *recordingSender) SendPasswordReset(_ context.Context, to, name, token string) error {
	s.calls++
	s.to, s.name, s.token = to, name, token
	return s.err
}

func TestNewPasswordResetEmailTask(t *testing.T) {
	task, err := NewPasswordResetEmailTask(PasswordResetEmailPayload{To: "a@example.com", Name: "A", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, TaskPasswordResetEmail, task.Type())

	var payload PasswordResetEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "tok", payload.Token)

	_, err = NewPasswordResetEmailTask(PasswordResetEmailPayload{To: "a@example.com"})
	assert.Error(t, err)
	_, err = NewPasswordResetEmailTask(PasswordResetEmailPayload{Token: "tok"})
	assert.Error(t, err)
}

func TestPasswordResetEmailJobDelivers(t *testing.T) {
	sender := &recordingSender{}
	job := NewPasswordResetEmailJob(sender, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewPasswordResetEmailTask(PasswordResetEmailPayload{To: "a@example.com", Name: "Asha", Token: "tok"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "a@example.com", sender.to)
	assert.Equal(t, "Asha", sender.name)
	assert.Equal(t, "tok", sender.token)
}

func TestPasswordResetEmailJobRetriesDeliveryFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	job := NewPasswordResetEmailJob(sender, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewPasswordResetEmailTask(PasswordResetEmailPayload{To: "a@example.com", Token: "tok"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestPasswordResetEmailJobSkipsMalformedPayload(t *testing.T) {
	sender := &recordingSender{}
	job := NewPasswordResetEmailJob(sender, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskPasswordResetEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = job.Handle(context.Background(), asynq.NewTask(TaskPasswordResetEmail, []byte(`{"to":"a@example.com"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, sender.calls)
}

type fakePurger struct {
	at       time.Time
	tokens   int64
	sessions int64
	err      error
}

func (f *fakePurger) PurgeExpired(_ context.Context, now time.Time) (int64, int64, error) {
	f.at = now
	return f.tokens, f.sessions, f.err
}

func TestPurgeExpiredJob(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	store := &fakePurger{tokens: 4, sessions: 2}
	job := NewPurgeExpiredJob(store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return fixed }

	require.NoError(t, job.Handle(context.Background(), NewPurgeExpiredTask()))
	assert.Equal(t, fixed, store.at)

	store.err = errors.New("db gone")
	assert.Error(t, job.Handle(context.Background(), NewPurgeExpiredTask()))

	var unconfigured *PurgeExpiredJob
	assert.Error(t, unconfigured.Handle(context.Background(), NewPurgeExpiredTask()))
}

func TestNewMuxSkipsIncompleteHandlers(t *testing.T) {
	called := false
	mux := NewMux([]TaskHandler{
		{Type: TaskPurgeExpired, Handler: func(context.Context, *asynq.Task) error { called = true; return nil }},
		{Type: "", Handler: func(context.Context, *asynq.Task) error { return nil }},
		{Type: TaskPasswordResetEmail},
	})
	require.NoError(t, mux.ProcessTask(context.Background(), NewPurgeExpiredTask()))
	assert.True(t, called)
	assert.Error(t, mux.ProcessTask(context.Background(), asynq.NewTask(TaskPasswordResetEmail, nil)))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func getHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rr
}

func TestHealthReportsQueueDepth(t *testing.T) {
	rr := getHealth(t, fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":3`)
	assert.Contains(t, rr.Body.String(), `"retry":1`)

	rr = getHealth(t, fakeInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "redis down")
}
