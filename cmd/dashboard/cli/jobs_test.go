package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npcl-dashboard/npcl-dashboard/jobs"
)

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	closed bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { f.closed = true; return nil }

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }
func (fakeInspector) Close() error                                     { return errors.New("already closed") }

func TestTriggerPurge(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := &JobsCLI{client: enq}

	info, err := c.Trigger(context.Background(), "purge")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskPurgeExpired, info.Type)
	require.Len(t, enq.tasks, 1)

	_, err = c.Trigger(context.Background(), "mail:password_reset")
	assert.Error(t, err)

	var unconfigured *JobsCLI
	_, err = unconfigured.Trigger(context.Background(), "purge")
	assert.Error(t, err)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{inspector: fakeInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}}}
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}, stats)
	assert.Equal(t, "queue=default pending=2 active=0 scheduled=0 retry=1", stats.String())

	c = &JobsCLI{inspector: fakeInspector{err: errors.New("redis down")}}
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)
}

func TestCloseReportsInspectorError(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := &JobsCLI{client: enq, inspector: fakeInspector{}}
	assert.Error(t, c.Close())
	assert.True(t, enq.closed)
}
