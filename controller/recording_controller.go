package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"telemetry-logger/models"
	"telemetry-logger/services/heartbeat"
	"telemetry-logger/services/queue"
	"telemetry-logger/utils"
	"telemetry-logger/views"
)

// RecordingOptions tunes the drain loop. Zero values select the defaults.
type RecordingOptions struct {
	PersistPeriod utils.Tick // minimum ticks between drain start and persist (1000)
	RateWait      string     // utils.RateWaitSpin (default) or utils.RateWaitSleep
	Metrics       *utils.Metrics
}

// RecordingController is the final pipeline stage. Each cycle it takes
// one sample off the queue, holds it until the persist period has elapsed
// since the drain began, appends the formatted record and raises the
// consumer heartbeat.
//
// In spin mode the hold is a busy-wait that keeps the goroutine runnable;
// sleep mode suspends instead. Both keep
// consecutive records at least PersistPeriod ticks apart.
type RecordingController struct {
	queue  *queue.SampleQueue
	signal *heartbeat.Signal
	clock  utils.Clock
	store  views.RecordStore
	cpu    utils.CPUEstimator
	opts   RecordingOptions

	written uint64
	failed  uint64
	wg      sync.WaitGroup
}

func NewRecordingController(q *queue.SampleQueue, sig *heartbeat.Signal, clock utils.Clock,
	store views.RecordStore, cpu utils.CPUEstimator, opts RecordingOptions) *RecordingController {
	if opts.PersistPeriod == 0 {
		opts.PersistPeriod = 1000
	}
	if opts.RateWait == "" {
		opts.RateWait = utils.RateWaitSpin
	}
	if cpu == nil {
		cpu = utils.StaticCPU(0)
	}
	return &RecordingController{
		queue:  q,
		signal: sig,
		clock:  clock,
		store:  store,
		cpu:    cpu,
		opts:   opts,
	}
}

// Start launches the drain goroutine; it runs until ctx is cancelled.
func (rc *RecordingController) Start(ctx context.Context) {
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		for {
			_ = rc.Cycle(ctx)
			if ctx.Err() != nil {
				utils.L().Info("recording controller stopped (written=%d, failed=%d)",
					atomic.LoadUint64(&rc.written), atomic.LoadUint64(&rc.failed))
				return
			}
		}
	}()
	utils.L().Info("recording controller started (persist_period=%d ticks, rate_wait=%s)",
		rc.opts.PersistPeriod, rc.opts.RateWait)
}

// Cycle drains and persists one sample. It returns ctx's error when
// cancelled, or the storage error when the append failed; in the latter
// case the consumer heartbeat is still raised and the next cycle proceeds
// normally.
func (rc *RecordingController) Cycle(ctx context.Context) error {
	sample, ok := rc.queue.Dequeue(ctx, utils.WaitForever)
	if !ok {
		return ctx.Err()
	}

	start := rc.clock.Now()
	if err := rc.holdUntil(ctx, start); err != nil {
		return err
	}

	observed := rc.signal.LastObserved()
	rec := models.LogRecord{
		Sample:     sample,
		CPUPercent: rc.cpu.CPUPercent(),
		Tick:       uint64(rc.clock.Now()),
		Bit1:       observed.Has(heartbeat.ProducerAlive),
		Bit2:       observed.Has(heartbeat.ConsumerAlive),
	}

	err := rc.store.AppendRecord(ctx, rec.Bytes())
	if err != nil {
		atomic.AddUint64(&rc.failed, 1)
		rc.opts.Metrics.PersistFailed(ctx)
		utils.L().Error("failed to write record (tick=%d): %v", rec.Tick, err)
	} else {
		atomic.AddUint64(&rc.written, 1)
		rc.opts.Metrics.RecordPersisted(ctx)
	}

	rc.signal.Set(heartbeat.ConsumerAlive)
	return err
}

func (rc *RecordingController) holdUntil(ctx context.Context, start utils.Tick) error {
	period := rc.opts.PersistPeriod

	if rc.opts.RateWait == utils.RateWaitSleep {
		if elapsed := rc.clock.Now() - start; elapsed < period {
			return rc.clock.Sleep(ctx, period-elapsed)
		}
		return nil
	}

	for rc.clock.Now()-start < period {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns (written, failed) counts atomically.
func (rc *RecordingController) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&rc.written), atomic.LoadUint64(&rc.failed)
}

// Wait blocks until the drain goroutine has exited.
func (rc *RecordingController) Wait() {
	rc.wg.Wait()
}
