package controller

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-logger/models"
	"telemetry-logger/services/heartbeat"
	"telemetry-logger/services/queue"
	"telemetry-logger/utils"
	"telemetry-logger/views"
)

type recorderFixture struct {
	clock *utils.ManualClock
	queue *queue.SampleQueue
	sig   *heartbeat.Signal
	store *memStore
	rc    *RecordingController
}

func newRecorderFixture(step utils.Tick, mode string) *recorderFixture {
	clock := utils.NewManualClock(0, step)
	f := &recorderFixture{
		clock: clock,
		queue: queue.NewSampleQueue(16, clock),
		sig:   heartbeat.NewSignal(clock),
		store: &memStore{},
	}
	f.rc = NewRecordingController(f.queue, f.sig, clock, f.store, utils.StaticCPU(42),
		RecordingOptions{RateWait: mode})
	return f
}

func (f *recorderFixture) fill(n int) {
	for i := 1; i <= n; i++ {
		f.queue.TryEnqueue(models.AxisSample{X: int32(i), Y: int32(2 * i), Z: int32(3 * i)}, 0)
	}
}

func TestRecordingRecordLine(t *testing.T) {
	f := newRecorderFixture(0, utils.RateWaitSleep)
	f.fill(1)
	f.sig.Set(heartbeat.AllAlive)
	f.sig.WaitAndClear(context.Background(), heartbeat.AllAlive, 0)

	require.NoError(t, f.rc.Cycle(context.Background()))

	lines := f.store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Value, 1 2 3, CPU: 42, Time: 1000, Status: Bit1 1, Bit2 1\n", lines[0])
	assert.True(t, f.sig.Bits().Has(heartbeat.ConsumerAlive))
}

func TestRecordingReportsLastObservedBits(t *testing.T) {
	f := newRecorderFixture(0, utils.RateWaitSleep)
	f.fill(1)
	f.sig.Set(heartbeat.ProducerAlive)
	f.sig.WaitAndClear(context.Background(), heartbeat.AllAlive, 0)

	require.NoError(t, f.rc.Cycle(context.Background()))
	assert.Contains(t, f.store.Lines()[0], "Status: Bit1 1, Bit2 0\n")
}

func TestRecordingRateLimit(t *testing.T) {
	for _, mode := range []string{utils.RateWaitSpin, utils.RateWaitSleep} {
		t.Run(mode, func(t *testing.T) {
			f := newRecorderFixture(1, mode)
			f.fill(5)

			for i := 0; i < 5; i++ {
				require.NoError(t, f.rc.Cycle(context.Background()))
			}

			lines := f.store.Lines()
			require.Len(t, lines, 5)
			prev := recordTick(t, lines[0])
			assert.GreaterOrEqual(t, prev, uint64(1000))
			for _, l := range lines[1:] {
				tick := recordTick(t, l)
				assert.GreaterOrEqual(t, tick-prev, uint64(1000), "records %d and %d too close", prev, tick)
				prev = tick
			}
		})
	}
}

func TestRecordingSleepModeIsExact(t *testing.T) {
	f := newRecorderFixture(0, utils.RateWaitSleep)
	f.fill(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.rc.Cycle(context.Background()))
	}

	var ticks []uint64
	for _, l := range f.store.Lines() {
		ticks = append(ticks, recordTick(t, l))
	}
	assert.Equal(t, []uint64{1000, 2000, 3000}, ticks)
}

func TestRecordingFailureIsIsolated(t *testing.T) {
	f := newRecorderFixture(0, utils.RateWaitSleep)
	f.fill(2)
	f.store.failNext = 1

	err := f.rc.Cycle(context.Background())
	require.ErrorIs(t, err, errDiskGone)
	assert.True(t, f.sig.Bits().Has(heartbeat.ConsumerAlive), "heartbeat raised despite failure")
	assert.Empty(t, f.store.Lines())

	f.sig.WaitAndClear(context.Background(), heartbeat.AllAlive, 0)

	require.NoError(t, f.rc.Cycle(context.Background()))
	lines := f.store.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Value, 2 4 6,")
	assert.True(t, f.sig.Bits().Has(heartbeat.ConsumerAlive))

	written, failed := f.rc.Stats()
	assert.Equal(t, uint64(1), written)
	assert.Equal(t, uint64(1), failed)
}

func TestRecordingCycleCancelled(t *testing.T) {
	f := newRecorderFixture(1, utils.RateWaitSpin)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.rc.Cycle(ctx), context.Canceled)
	assert.False(t, f.sig.Bits().Has(heartbeat.ConsumerAlive))
}

func TestRecordingStartDrainsUntilCancelled(t *testing.T) {
	f := newRecorderFixture(1, utils.RateWaitSpin)
	ctx, cancel := context.WithCancel(context.Background())
	f.rc.Start(ctx)

	f.fill(3)
	require.Eventually(t, func() bool { return len(f.store.Lines()) == 3 }, testWait, testTick)

	cancel()
	f.rc.Wait()
	written, failed := f.rc.Stats()
	assert.Equal(t, uint64(3), written)
	assert.Zero(t, failed)
}

// timeoutStore fails appends with an error that wraps a deadline, as a
// store with its own per-write timeout would.
type timeoutStore struct {
	memStore
	failNext int
}

func (s *timeoutStore) AppendRecord(ctx context.Context, rec []byte) error {
	s.mu.Lock()
	fail := s.failNext > 0
	if fail {
		s.failNext--
	}
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("append: %w", context.DeadlineExceeded)
	}
	return s.memStore.AppendRecord(ctx, rec)
}

func TestRecordingStartKeepsDrainingAfterFailures(t *testing.T) {
	tests := []struct {
		name  string
		store interface {
			views.RecordStore
			Lines() []string
		}
	}{
		{"plain error", &memStore{failNext: 2}},
		{"wrapped deadline", &timeoutStore{failNext: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecorderFixture(1, utils.RateWaitSpin)
			rc := NewRecordingController(f.queue, f.sig, f.clock, tt.store, utils.StaticCPU(0),
				RecordingOptions{})
			ctx, cancel := context.WithCancel(context.Background())
			rc.Start(ctx)

			f.fill(5)
			require.Eventually(t, func() bool { return len(tt.store.Lines()) == 3 }, testWait, testTick)

			cancel()
			rc.Wait()
			written, failed := rc.Stats()
			assert.Equal(t, uint64(3), written)
			assert.Equal(t, uint64(2), failed)
		})
	}
}
