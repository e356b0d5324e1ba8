package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_InvalidScheduleOnlySkipsThatJob(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, nil)
	noop := func(context.Context) error { return nil }

	err := s.Register(JobReminderGenerator, "every tuesday-ish", noop)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	require.NoError(t, s.Register(JobQueueProcessor, "every 30 seconds", noop))

	assert.False(t, s.Registered(JobReminderGenerator))
	assert.True(t, s.Registered(JobQueueProcessor))

	status := s.Status()
	assert.False(t, status.Running)
	require.Len(t, status.Jobs, 1)
	assert.Equal(t, JobQueueProcessor, status.Jobs[0].Name)
	assert.Equal(t, "every 30 seconds", status.Jobs[0].Schedule)
}

func TestScheduler_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	s := New(nil, nil)
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register(JobQueueProcessor, "@every 1m", noop))
	assert.Error(t, s.Register(JobQueueProcessor, "@every 2m", noop))
}

func TestScheduler_RunsJobsAndSwallowsErrors(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, nil)
	var calls atomic.Int32
	require.NoError(t, s.Register(JobQueueProcessor, "every 1 second", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("datastore unavailable")
	}))

	s.Start()
	s.Start()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)

	status := s.Status()
	assert.True(t, status.Running)
	require.Len(t, status.Jobs, 1)
	assert.False(t, status.Jobs[0].Next.IsZero())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Status().Running)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, nil)
	started := make(chan struct{})
	var once atomic.Bool
	require.NoError(t, s.Register(JobReminderGenerator, "every 1 second", func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, nil)
	assert.NoError(t, s.Stop(context.Background()))
}
