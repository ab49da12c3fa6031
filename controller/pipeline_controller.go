package controller

import (
	"context"

	"telemetry-logger/services/heartbeat"
	"telemetry-logger/services/ingest"
	"telemetry-logger/services/queue"
	"telemetry-logger/utils"
	"telemetry-logger/views"
)

// PipelineController owns the shared queue and heartbeat signal and the
// lifecycle of the three pipeline goroutines.
type PipelineController struct {
	Queue  *queue.SampleQueue
	Signal *heartbeat.Signal

	producer *ProducerController
	recorder *RecordingController
	watchdog *WatchdogController
}

// NewPipelineController wires producer → queue → recorder and the watchdog
// over a fresh queue and signal.
func NewPipelineController(cfg utils.PipelineConfig, clock utils.Clock, src ingest.AxisSource,
	store views.RecordStore, cpu utils.CPUEstimator, metrics *utils.Metrics,
	reporters ...VerdictReporter) *PipelineController {

	q := queue.NewSampleQueue(cfg.QueueCapacity, clock)
	sig := heartbeat.NewSignal(clock)

	return &PipelineController{
		Queue:  q,
		Signal: sig,
		producer: NewProducerController(src, q, sig, clock, ProducerOptions{
			SamplesPerAverage: cfg.SamplesPerAverage,
			EnqueueTimeout:    utils.Tick(cfg.EnqueueTimeoutTicks),
			CycleDelay:        utils.Tick(cfg.ProducerDelayTicks),
			Metrics:           metrics,
		}),
		recorder: NewRecordingController(q, sig, clock, store, cpu, RecordingOptions{
			PersistPeriod: utils.Tick(cfg.PersistPeriodTicks),
			RateWait:      cfg.RateWait,
			Metrics:       metrics,
		}),
		watchdog: NewWatchdogController(sig, clock, WatchdogOptions{
			Period:  utils.Tick(cfg.WatchdogPeriodTicks),
			Window:  utils.Tick(cfg.WatchdogWindowTicks),
			Metrics: metrics,
		}, reporters...),
	}
}

// Start launches the recorder, producer and watchdog goroutines.
func (pc *PipelineController) Start(ctx context.Context) {
	pc.recorder.Start(ctx)
	pc.producer.Start(ctx)
	pc.watchdog.Start(ctx)
	utils.L().Info("pipeline controller: all tasks launched")
}

// Wait blocks until every pipeline goroutine has exited. The caller
// cancels the context passed to Start first.
func (pc *PipelineController) Wait() {
	pc.producer.Wait()
	pc.recorder.Wait()
	pc.watchdog.Wait()
}

// Stats returns a snapshot of every pipeline counter.
func (pc *PipelineController) Stats() map[string]uint64 {
	produced, dropped := pc.producer.Stats()
	written, failed := pc.recorder.Stats()
	cycles, degraded := pc.watchdog.Stats()
	return map[string]uint64{
		"produced":        produced,
		"dropped":         dropped,
		"written":         written,
		"write_failed":    failed,
		"queue_len":       uint64(pc.Queue.Len()),
		"watchdog_cycles": cycles,
		"degraded":        degraded,
	}
}

// LogStats prints current counters for every stage.
func (pc *PipelineController) LogStats() {
	s := pc.Stats()
	utils.L().Info("  producer produced=%d  dropped=%d", s["produced"], s["dropped"])
	utils.L().Info("  queue    len=%d/%d", s["queue_len"], pc.Queue.Cap())
	utils.L().Info("  recorder written=%d  failed=%d", s["written"], s["write_failed"])
	utils.L().Info("  watchdog cycles=%d  degraded=%d", s["watchdog_cycles"], s["degraded"])
}
