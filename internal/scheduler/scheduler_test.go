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

func TestNewInvalidTimezone(t *testing.T) {
	_, err := New("Mars/Olympus")
	assert.Error(t, err)
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	err = s.AddJob("bad", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.ListJobs())
}

func TestSummaryJobRuns(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.AddSummaryJob("@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}))

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "summary", jobs[0].Name)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestAddJobReplacesSameName(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.AddJob("summary", "@every 1m", noop))
	require.NoError(t, s.AddJob("summary", "@every 2m", noop))
	assert.Len(t, s.ListJobs(), 1)

	s.RemoveJob("summary")
	assert.Empty(t, s.ListJobs())
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	s.WithTimeout(20 * time.Millisecond)

	err = s.RunNow(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
