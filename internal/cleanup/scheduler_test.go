package cleanup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestScheduleFiresAfterDelay(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	done := make(chan struct{})
	_, err := s.Schedule(10*time.Millisecond, "fire", func() { close(done) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
	require.NoError(t, s.Shutdown(context.Background(), false))
	assert.Equal(t, 0, s.Pending())
}

func TestCancelBeforeFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	var ran atomic.Bool
	cancel, err := s.Schedule(time.Hour, "cancel", func() { ran.Store(true) })
	require.NoError(t, err)

	assert.True(t, cancel())
	assert.False(t, cancel())
	assert.Equal(t, 0, s.Pending())

	require.NoError(t, s.Shutdown(context.Background(), true))
	assert.False(t, ran.Load())
}

func TestCancelAfterFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	done := make(chan struct{})
	cancel, err := s.Schedule(time.Millisecond, "late", func() { close(done) })
	require.NoError(t, err)
	<-done

	require.NoError(t, s.Shutdown(context.Background(), false))
	assert.False(t, cancel())
}

func TestShutdownFlushRunsPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	var count atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := s.Schedule(time.Hour, "flush", func() { count.Add(1) })
		require.NoError(t, err)
	}

	require.NoError(t, s.Shutdown(context.Background(), true))
	assert.Equal(t, int32(3), count.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestShutdownWithoutFlushDropsPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	var ran atomic.Bool
	_, err := s.Schedule(time.Hour, "drop", func() { ran.Store(true) })
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(context.Background(), false))
	assert.False(t, ran.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestScheduleAfterShutdown(t *testing.T) {
	s := New()
	require.NoError(t, s.Shutdown(context.Background(), true))

	_, err := s.Schedule(time.Millisecond, "closed", func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPanickingTaskIsContained(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New()
	var after atomic.Bool
	_, err := s.Schedule(time.Hour, "boom", func() { panic("boom") })
	require.NoError(t, err)
	_, err = s.Schedule(time.Hour, "after", func() { after.Store(true) })
	require.NoError(t, err)

	require.NoError(t, s.Shutdown(context.Background(), true))
	assert.True(t, after.Load())
}

func TestShutdownHonorsContext(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{})
	_, err := s.Schedule(time.Millisecond, "slow", func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx, false), context.DeadlineExceeded)

	close(release)
}
