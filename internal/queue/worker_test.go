package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/store"
)

type fakeRunner struct {
	executed []string
	err      error
}

func (f *fakeRunner) Execute(ctx context.Context, job *model.RunJob) (*model.Run, error) {
	f.executed = append(f.executed, job.ID)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Run{JobID: job.ID, Success: true}, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{MaxAttempts: 3, BackoffSecs: 60, PollSecs: 1, Workers: 1}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	st := newTestStore(t)
	w := NewWorker(testQueueConfig(), st, &fakeRunner{})

	ok, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessOneCompletesJob(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	runner := &fakeRunner{}
	w := NewWorker(testQueueConfig(), st, runner)

	job := &model.RunJob{Trigger: model.TriggerManual, MaxAttempts: 3}
	require.NoError(t, st.EnqueueJob(ctx, job))

	ok, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{job.ID}, runner.executed)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
}

func TestProcessOneFailureSchedulesRetry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	runner := &fakeRunner{err: eris.New("all sources failed")}
	w := NewWorker(testQueueConfig(), st, runner)

	job := &model.RunJob{Trigger: model.TriggerManual, MaxAttempts: 3}
	require.NoError(t, st.EnqueueJob(ctx, job))

	ok, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Contains(t, got.LastError, "all sources failed")
	assert.True(t, got.NextRunAt.After(time.Now().UTC().Add(30*time.Second)),
		"retry is pushed out by backoff")
}

func TestProcessOneExhaustionGoesDead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	runner := &fakeRunner{err: eris.New("source gone")}
	cfg := testQueueConfig()
	w := NewWorker(cfg, st, runner)
	// Retry immediately so the test does not wait out the backoff.
	w.now = func() time.Time { return time.Now().UTC().Add(-time.Duration(cfg.BackoffSecs*8) * time.Second) }

	job := &model.RunJob{Trigger: model.TriggerScheduled, MaxAttempts: 2}
	require.NoError(t, st.EnqueueJob(ctx, job))

	for range 2 {
		ok, err := w.ProcessOne(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobDead, got.Status)
	assert.Len(t, runner.executed, 2)

	// Dead jobs are never claimed again.
	ok, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackoffDoubles(t *testing.T) {
	w := NewWorker(config.QueueConfig{BackoffSecs: 60}, nil, nil)
	assert.Equal(t, time.Minute, w.backoff(1))
	assert.Equal(t, 2*time.Minute, w.backoff(2))
	assert.Equal(t, 4*time.Minute, w.backoff(3))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	st := newTestStore(t)
	s := NewScheduler(config.ScheduleConfig{
		MonthStartCron: "not a cron spec",
		MidMonthCron:   "0 6 15 * *",
	}, testQueueConfig(), st)

	assert.Error(t, s.Start())
}

func TestSchedulerFireEnqueuesFullRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	s := NewScheduler(config.ScheduleConfig{
		MonthStartCron: "0 6 1 * *",
		MidMonthCron:   "0 6 15 * *",
	}, testQueueConfig(), st)

	s.fire("month-start")

	job, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.TriggerScheduled, job.Trigger)
	assert.Equal(t, "month-start", job.Slot)
	assert.True(t, job.Full)
	assert.Equal(t, 3, job.MaxAttempts)
}
