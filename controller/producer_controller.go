package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"telemetry-logger/models"
	"telemetry-logger/services/heartbeat"
	"telemetry-logger/services/ingest"
	"telemetry-logger/services/queue"
	"telemetry-logger/utils"
)

// ProducerOptions tunes the sampling loop. Zero values select the
// defaults.
type ProducerOptions struct {
	SamplesPerAverage int        // raw reads per averaged sample (100)
	EnqueueTimeout    utils.Tick // bounded enqueue wait (1)
	CycleDelay        utils.Tick // pause between cycles (0: none)
	Metrics           *utils.Metrics
}

// ProducerController owns the sampling task: it averages raw readings,
// raises the producer heartbeat and offers the result to the queue,
// dropping it when the queue stays full.
type ProducerController struct {
	source ingest.AxisSource
	queue  *queue.SampleQueue
	signal *heartbeat.Signal
	clock  utils.Clock
	opts   ProducerOptions

	dropLog  rate.Sometimes
	produced uint64
	dropped  uint64
	wg       sync.WaitGroup
}

func NewProducerController(src ingest.AxisSource, q *queue.SampleQueue, sig *heartbeat.Signal,
	clock utils.Clock, opts ProducerOptions) *ProducerController {
	if opts.SamplesPerAverage <= 0 {
		opts.SamplesPerAverage = 100
	}
	if opts.EnqueueTimeout == 0 {
		opts.EnqueueTimeout = 1
	}
	return &ProducerController{
		source:  src,
		queue:   q,
		signal:  sig,
		clock:   clock,
		opts:    opts,
		dropLog: rate.Sometimes{Interval: 5 * time.Second},
	}
}

// Start launches the sampling goroutine; it runs until ctx is cancelled.
func (p *ProducerController) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
	utils.L().Info("producer started       (samples_per_average=%d, enqueue_timeout=%d ticks)",
		p.opts.SamplesPerAverage, p.opts.EnqueueTimeout)
}

func (p *ProducerController) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			utils.L().Info("producer stopped       (produced=%d, dropped=%d)",
				atomic.LoadUint64(&p.produced), atomic.LoadUint64(&p.dropped))
			return
		default:
		}

		p.Cycle(ctx)

		if p.opts.CycleDelay > 0 {
			_ = p.clock.Sleep(ctx, p.opts.CycleDelay)
		}
	}
}

// Cycle runs one sampling cycle and reports the averaged sample and
// whether the queue accepted it.
func (p *ProducerController) Cycle(ctx context.Context) (models.AxisSample, bool) {
	avg := Average(p.source, p.opts.SamplesPerAverage)
	atomic.AddUint64(&p.produced, 1)
	p.opts.Metrics.SampleProduced(ctx)

	p.signal.Set(heartbeat.ProducerAlive)

	if p.queue.TryEnqueue(avg, p.opts.EnqueueTimeout) {
		return avg, true
	}

	// Queue full: the sample is discarded, nothing is retried.
	dropped := atomic.AddUint64(&p.dropped, 1)
	p.opts.Metrics.SampleDropped(ctx)
	p.dropLog.Do(func() {
		utils.L().Warn("producer: queue full (len=%d), dropping samples (dropped=%d)",
			p.queue.Len(), dropped)
	})
	return avg, false
}

// Average reads n consecutive samples from src without delay and returns
// their per-axis mean, truncated toward zero.
func Average(src ingest.AxisSource, n int) models.AxisSample {
	var sum models.AxisSum
	for i := 0; i < n; i++ {
		sum.Add(src.Read())
	}
	return sum.Mean()
}

// Stats returns (produced, dropped) counts atomically.
func (p *ProducerController) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&p.produced), atomic.LoadUint64(&p.dropped)
}

// Wait blocks until the sampling goroutine has exited.
func (p *ProducerController) Wait() {
	p.wg.Wait()
}
