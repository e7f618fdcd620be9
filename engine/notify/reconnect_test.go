package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureAfterFunc replaces the supervisor timer so tests observe delays and
// fire callbacks synchronously.
type captureAfterFunc struct {
	delays    []time.Duration
	callbacks []func()
}

func (c *captureAfterFunc) afterFunc(d time.Duration, f func()) *time.Timer {
	c.delays = append(c.delays, d)
	c.callbacks = append(c.callbacks, f)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	return timer
}

func (c *captureAfterFunc) fireLast() {
	c.callbacks[len(c.callbacks)-1]()
}

func TestReconnectSupervisor_ScheduleRetry(t *testing.T) {
	t.Run("Should follow the capped exponential delay sequence", func(t *testing.T) {
		capture := &captureAfterFunc{}
		s := NewReconnectSupervisor(2*time.Second, 30*time.Second, 0)
		s.afterFunc = capture.afterFunc
		for i := 0; i < 7; i++ {
			require.True(t, s.ScheduleRetry(func() {}))
			capture.fireLast()
		}
		want := []time.Duration{
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second,
			30 * time.Second,
		}
		assert.Equal(t, want, capture.delays)
	})
	t.Run("Should restart the sequence after Reset", func(t *testing.T) {
		capture := &captureAfterFunc{}
		s := NewReconnectSupervisor(2*time.Second, 30*time.Second, 0)
		s.afterFunc = capture.afterFunc
		for i := 0; i < 3; i++ {
			require.True(t, s.ScheduleRetry(func() {}))
			capture.fireLast()
		}
		s.Reset()
		assert.Zero(t, s.Attempt())
		require.True(t, s.ScheduleRetry(func() {}))
		assert.Equal(t, 2*time.Second, capture.delays[len(capture.delays)-1])
	})
	t.Run("Should invoke the scheduled callback when the timer fires", func(t *testing.T) {
		capture := &captureAfterFunc{}
		s := NewReconnectSupervisor(2*time.Second, 30*time.Second, 0)
		s.afterFunc = capture.afterFunc
		fired := false
		require.True(t, s.ScheduleRetry(func() { fired = true }))
		capture.fireLast()
		assert.True(t, fired)
	})
	t.Run("Should refuse to schedule beyond the attempt ceiling", func(t *testing.T) {
		capture := &captureAfterFunc{}
		s := NewReconnectSupervisor(2*time.Second, 30*time.Second, 2)
		s.afterFunc = capture.afterFunc
		require.True(t, s.ScheduleRetry(func() {}))
		capture.fireLast()
		require.True(t, s.ScheduleRetry(func() {}))
		capture.fireLast()
		assert.False(t, s.ScheduleRetry(func() {}))
		assert.Len(t, capture.delays, 2)
	})
	t.Run("Should count attempts since the last reset", func(t *testing.T) {
		capture := &captureAfterFunc{}
		s := NewReconnectSupervisor(2*time.Second, 30*time.Second, 0)
		s.afterFunc = capture.afterFunc
		require.True(t, s.ScheduleRetry(func() {}))
		require.True(t, s.ScheduleRetry(func() {}))
		assert.Equal(t, 2, s.Attempt())
	})
}

func TestReconnectSupervisor_Cancel(t *testing.T) {
	t.Run("Should stop a pending retry", func(t *testing.T) {
		s := NewReconnectSupervisor(10*time.Millisecond, 30*time.Millisecond, 0)
		fired := make(chan struct{})
		require.True(t, s.ScheduleRetry(func() { close(fired) }))
		s.Cancel()
		select {
		case <-fired:
			t.Fatal("retry fired after Cancel")
		case <-time.After(50 * time.Millisecond):
		}
	})
	t.Run("Should be safe to call repeatedly", func(t *testing.T) {
		s := NewReconnectSupervisor(time.Second, 30*time.Second, 0)
		s.Cancel()
		s.Cancel()
	})
	t.Run("Should refuse new retries until the next reset", func(t *testing.T) {
		capture := &captureAfterFunc{}
		s := NewReconnectSupervisor(2*time.Second, 30*time.Second, 0)
		s.afterFunc = capture.afterFunc
		s.Cancel()
		assert.False(t, s.ScheduleRetry(func() {}))
		s.Reset()
		assert.True(t, s.ScheduleRetry(func() {}))
	})
}
