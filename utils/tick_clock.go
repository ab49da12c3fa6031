package utils

import (
	"context"
	"math"
	"sync"
	"time"
)

// Tick is one unit of the monotonic scheduler clock.
type Tick uint64

// WaitForever disables the timeout on blocking queue and signal waits.
const WaitForever Tick = math.MaxUint64

// DefaultTickDuration matches a 1 kHz scheduler tick.
const DefaultTickDuration = time.Millisecond

// Clock is the monotonic tick source shared by every pipeline task.
type Clock interface {
	// Now returns the current tick count. Never decreases.
	Now() Tick
	// Sleep suspends the caller for n ticks or until ctx is done.
	Sleep(ctx context.Context, n Tick) error
	// After returns a channel that is closed once n ticks have elapsed.
	After(n Tick) <-chan struct{}
}

// SchedulerClock derives ticks from the process monotonic clock.
type SchedulerClock struct {
	start time.Time
	tick  time.Duration
}

// NewSchedulerClock starts a clock at tick 0. A non-positive tick duration
// falls back to DefaultTickDuration.
func NewSchedulerClock(tick time.Duration) *SchedulerClock {
	if tick <= 0 {
		tick = DefaultTickDuration
	}
	return &SchedulerClock{start: time.Now(), tick: tick}
}

func (c *SchedulerClock) Now() Tick {
	return Tick(time.Since(c.start) / c.tick)
}

// TickDuration reports the wall-time length of one tick.
func (c *SchedulerClock) TickDuration() time.Duration {
	return c.tick
}

func (c *SchedulerClock) Sleep(ctx context.Context, n Tick) error {
	t := time.NewTimer(c.duration(n))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *SchedulerClock) After(n Tick) <-chan struct{} {
	ch := make(chan struct{})
	if n == WaitForever {
		return ch
	}
	time.AfterFunc(c.duration(n), func() { close(ch) })
	return ch
}

func (c *SchedulerClock) duration(n Tick) time.Duration {
	if n > Tick(math.MaxInt64/int64(c.tick)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n) * c.tick
}

// ManualClock is a virtual tick source for deterministic tests.
//
// Every Now call advances the clock by Step ticks (0 freezes it), so a
// busy-wait loop makes progress without wall time passing. Sleep and After
// advance virtual time immediately and never block.
type ManualClock struct {
	mu   sync.Mutex
	now  Tick
	step Tick
}

// NewManualClock creates a clock at tick start that advances by step on
// every Now call.
func NewManualClock(start, step Tick) *ManualClock {
	return &ManualClock{now: start, step: step}
}

func (c *ManualClock) Now() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now += c.step
	return t
}

// Peek returns the current tick without advancing.
func (c *ManualClock) Peek() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by n ticks.
func (c *ManualClock) Advance(n Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += n
}

func (c *ManualClock) Sleep(ctx context.Context, n Tick) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(n)
	return nil
}

func (c *ManualClock) After(n Tick) <-chan struct{} {
	ch := make(chan struct{})
	if n == WaitForever {
		return ch
	}
	c.Advance(n)
	close(ch)
	return ch
}
