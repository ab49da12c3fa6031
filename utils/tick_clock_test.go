package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockStepsOnNow(t *testing.T) {
	c := NewManualClock(10, 2)
	assert.Equal(t, Tick(10), c.Now())
	assert.Equal(t, Tick(12), c.Now())
	assert.Equal(t, Tick(14), c.Peek())
}

func TestManualClockSleepAndAfterAdvance(t *testing.T) {
	c := NewManualClock(0, 0)
	require.NoError(t, c.Sleep(context.Background(), 1000))
	assert.Equal(t, Tick(1000), c.Peek())

	select {
	case <-c.After(5):
	default:
		t.Fatal("After() channel not closed")
	}
	assert.Equal(t, Tick(1005), c.Peek())

	select {
	case <-c.After(WaitForever):
		t.Fatal("After(WaitForever) closed")
	default:
	}
}

func TestManualClockSleepCancelled(t *testing.T) {
	c := NewManualClock(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, 10), context.Canceled)
	assert.Equal(t, Tick(0), c.Peek())
}

func TestSchedulerClockMonotonic(t *testing.T) {
	c := NewSchedulerClock(0)
	assert.Equal(t, DefaultTickDuration, c.TickDuration())

	a := c.Now()
	require.NoError(t, c.Sleep(context.Background(), 3))
	b := c.Now()
	assert.GreaterOrEqual(t, uint64(b), uint64(a)+3)

	select {
	case <-c.After(1):
	case <-time.After(time.Second):
		t.Fatal("After(1) never fired")
	}
}

func TestSchedulerClockSleepCancelled(t *testing.T) {
	c := NewSchedulerClock(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Sleep(ctx, 60_000), context.DeadlineExceeded)
}
