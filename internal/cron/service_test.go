package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("job context has no deadline")
	}
	return t.err
}

type erroringLock struct{}

func (erroringLock) Acquire(context.Context) (bool, error) { return false, errors.New("redis down") }
func (erroringLock) Release(context.Context) error         { return nil }

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	bad := &testJob{name: "fail", err: errors.New("boom")}
	after := &testJob{name: "after"}
	lock := &LocalLock{}
	svc := newTestService(t, lock, ok, bad, after)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
	assert.Equal(t, 1, after.runs)

	held, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, held, "lock should be released after the cycle")
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &LocalLock{}
	_, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	svc := newTestService(t, lock, job)
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunOnceReportsLockErrors(t *testing.T) {
	job := &testJob{name: "job"}
	svc := newTestService(t, erroringLock{}, job)
	assert.Error(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	svc := newTestService(t, &LocalLock{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &LocalLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
