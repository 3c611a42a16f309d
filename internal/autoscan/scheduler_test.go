package autoscan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock jumps forward by the requested duration whenever it is waited on.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	waits []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.t = c.t.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.t
	return ch
}

func TestParse(t *testing.T) {
	for _, expr := range []string{DefaultSchedule, "*/15 * * * *", "@daily", "@every 1h"} {
		_, err := Parse(expr)
		assert.NoError(t, err, expr)
	}
	for _, expr := range []string{"", "every day", "0 3 * *", "61 * * * *"} {
		_, err := Parse(expr)
		assert.Error(t, err, expr)
	}
}

func TestNext(t *testing.T) {
	s, err := New(DefaultSchedule, func(context.Context) error { return nil })
	require.NoError(t, err)

	at := time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), s.Next(at))
	at = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), s.Next(at))
}

func TestRunFiresAtEachActivation(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 2, 59, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired []time.Time
	s, err := New(DefaultSchedule, func(context.Context) error {
		fired = append(fired, clock.now())
		if len(fired) == 3 {
			cancel()
		}
		return nil
	}, WithClock(clock.now, clock.after))
	require.NoError(t, err)

	err = s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, fired, 3)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), fired[0])
	assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), fired[1])
	assert.Equal(t, time.Date(2026, 3, 12, 3, 0, 0, 0, time.UTC), fired[2])
	assert.Equal(t, []time.Duration{time.Minute, 24 * time.Hour, 24 * time.Hour}, clock.waits)

	st := s.Stats()
	assert.Equal(t, 3, st.Runs)
	assert.Zero(t, st.Failed)
	assert.Equal(t, fired[2], st.LastRun)
}

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	s, err := New("@hourly", func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
			return nil
		}
		return errors.New("backend down")
	}, WithClock(clock.now, clock.after))
	require.NoError(t, err)

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, s.Stats().Failed)
}

func TestRunStopsWhileWaiting(t *testing.T) {
	s, err := New(DefaultSchedule, func(context.Context) error {
		t.Fatal("job must not run")
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	assert.False(t, s.Stats().Next.IsZero())
}

func TestRunReturnsAtOnceWhenCancelled(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 10, 2, 59, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(DefaultSchedule, func(context.Context) error {
		t.Fatal("job must not run")
		return nil
	}, WithClock(clock.now, clock.after))
	require.NoError(t, err)

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Empty(t, clock.waits)
	assert.Zero(t, s.Stats().Runs)
}
