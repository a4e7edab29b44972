package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRegisterAndRunNow(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Timeout: time.Second})
	calls := 0
	require.NoError(t, s.Register("cleanup", "@hourly", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		calls++
		return nil
	}))

	require.NoError(t, s.RunNow("cleanup"))
	assert.Equal(t, 1, calls)
}

func TestSchedulerRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.Register("cleanup", "@daily", noop))
	assert.Error(t, s.Register("cleanup", "@daily", noop))
	assert.Error(t, s.Register("broken", "every so often", noop))
	assert.Error(t, s.RunNow("missing"))
}

func TestSchedulerRunNowReturnsTaskError(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	boom := errors.New("disk full")
	require.NoError(t, s.Register("cleanup", "@daily", func(ctx context.Context) error { return boom }))

	assert.ErrorIs(t, s.RunNow("cleanup"), boom)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	s.Start()
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)
}
