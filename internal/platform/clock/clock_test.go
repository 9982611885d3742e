package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualSleepAdvances(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	require.NoError(t, m.Sleep(context.Background(), 5*time.Second))
	require.NoError(t, m.Sleep(context.Background(), 3*time.Second))
	m.Advance(time.Minute)

	assert.Equal(t, start.Add(time.Minute+8*time.Second), m.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, 3 * time.Second}, m.Sleeps())
	assert.Equal(t, 8*time.Second, m.Slept())
}

func TestManualSleepCancelled(t *testing.T) {
	t.Parallel()

	m := NewManual(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Sleep(ctx, time.Hour), context.Canceled)
	assert.Empty(t, m.Sleeps())
}

func TestSystemSleepHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	started := time.Now()
	err := System{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)

	require.NoError(t, System{}.Sleep(context.Background(), time.Millisecond))
}
