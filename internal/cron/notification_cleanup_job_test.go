package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type fakePurger struct {
	cutoff  time.Time
	deleted int64
	err     error
	calls   int
}

func (f *fakePurger) PurgeRead(_ context.Context, olderThan time.Time) (int64, error) {
	f.calls++
	f.cutoff = olderThan
	return f.deleted, f.err
}

func TestNotificationCleanupUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	purger := &fakePurger{deleted: 42}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Notifications: purger, RetentionDays: 7})
	require.NoError(t, err)
	job.(*notificationCleanupJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "notification-cleanup", job.Name())
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, time.Date(2026, 1, 24, 0, 0, 0, 0, time.UTC), purger.cutoff)
}

func TestNotificationCleanupDefaultsAndErrors(t *testing.T) {
	purger := &fakePurger{err: errors.New("boom")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Notifications: purger})
	require.NoError(t, err)
	assert.Equal(t, notificationRetentionDays, job.(*notificationCleanupJob).retention)
	assert.Error(t, job.Run(context.Background()))

	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
