package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_ScheduleCron(t *testing.T) {
	t.Run("returns job id for valid cron", func(t *testing.T) {
		s, err := NewScheduler(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleCron(context.Background(), "test", "0 */4 * * *", func(context.Context) error { return nil })
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects invalid cron", func(t *testing.T) {
		s, err := NewScheduler(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleCron(context.Background(), "test", "this is not a cron", func(context.Context) error { return nil })
		require.Error(t, err)
	})
}

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleEvery(context.Background(), "test", 10*time.Second, func(context.Context) error { return nil })
		require.NoError(t, err)
		require.NotEmpty(t, id)

		s.Start()
		next, err := s.NextRun(id)
		require.NoError(t, err)
		require.True(t, next.After(time.Now()))
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery(context.Background(), "test", 0, func(context.Context) error { return nil })
		require.Error(t, err)
	})
}

func TestScheduler_RunsTask(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	var runs atomic.Int32
	_, err = s.ScheduleEvery(context.Background(), "tick", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	})
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_CanceledContextSkipsTask(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var runs atomic.Int32
	_, err = s.ScheduleEvery(ctx, "tick", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	s.Start()

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, runs.Load())
}

func TestScheduler_NextRunUnknown(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	_, err = s.NextRun("nope")
	require.Error(t, err)
}
