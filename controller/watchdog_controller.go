package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"telemetry-logger/models"
	"telemetry-logger/services/heartbeat"
	"telemetry-logger/utils"
)

// VerdictReporter receives the result of every watchdog check.
type VerdictReporter interface {
	Report(models.VerdictReport)
}

// VerdictReporterFunc adapts a plain function to VerdictReporter.
type VerdictReporterFunc func(models.VerdictReport)

func (f VerdictReporterFunc) Report(r models.VerdictReport) { f(r) }

// LogReporter writes each verdict to the process logger.
type LogReporter struct{}

func (LogReporter) Report(r models.VerdictReport) {
	if r.Verdict == models.Healthy {
		utils.L().Debug("watchdog: cycle=%d tick=%d verdict=%s", r.Cycle, r.Tick, r.VerdictName)
		return
	}
	utils.L().Warn("watchdog: cycle=%d tick=%d verdict=%s (producer_alive=%t, consumer_alive=%t)",
		r.Cycle, r.Tick, r.VerdictName, r.ProducerAlive, r.ConsumerAlive)
}

type WatchdogOptions struct {
	Period  utils.Tick // idle ticks between checks (1000)
	Window  utils.Tick // how long a check waits for both bits (1)
	Metrics *utils.Metrics
}

// WatchdogController periodically checks that both pipeline stages raised
// their heartbeat since the previous check. Verdicts are reported only;
// the watchdog never restarts or stops the stages it observes.
type WatchdogController struct {
	signal    *heartbeat.Signal
	clock     utils.Clock
	opts      WatchdogOptions
	reporters []VerdictReporter

	cycles   uint64
	degraded uint64
	wg       sync.WaitGroup
}

func NewWatchdogController(sig *heartbeat.Signal, clock utils.Clock, opts WatchdogOptions,
	reporters ...VerdictReporter) *WatchdogController {
	if opts.Period == 0 {
		opts.Period = 1000
	}
	if opts.Window == 0 {
		opts.Window = 1
	}
	return &WatchdogController{
		signal:    sig,
		clock:     clock,
		opts:      opts,
		reporters: reporters,
	}
}

// Start launches the watchdog goroutine; it runs until ctx is cancelled.
func (w *WatchdogController) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			if _, err := w.Cycle(ctx); err != nil {
				c, d := w.Stats()
				utils.L().Info("watchdog stopped       (cycles=%d, degraded=%d)", c, d)
				return
			}
		}
	}()
	utils.L().Info("watchdog started       (period=%d ticks, window=%d ticks)", w.opts.Period, w.opts.Window)
}

// Cycle idles for one period, then waits up to the window for both
// heartbeat bits. Both bits are cleared whatever the outcome.
func (w *WatchdogController) Cycle(ctx context.Context) (models.VerdictReport, error) {
	if err := w.clock.Sleep(ctx, w.opts.Period); err != nil {
		return models.VerdictReport{}, err
	}

	bits := w.signal.WaitAndClear(ctx, heartbeat.AllAlive, w.opts.Window)
	if err := ctx.Err(); err != nil {
		return models.VerdictReport{}, err
	}

	verdict := models.Degraded
	if bits.Has(heartbeat.AllAlive) {
		verdict = models.Healthy
	} else {
		atomic.AddUint64(&w.degraded, 1)
	}

	report := models.VerdictReport{
		Cycle:         atomic.AddUint64(&w.cycles, 1),
		Tick:          uint64(w.clock.Now()),
		ProducerAlive: bits.Has(heartbeat.ProducerAlive),
		ConsumerAlive: bits.Has(heartbeat.ConsumerAlive),
		Verdict:       verdict,
		VerdictName:   verdict.String(),
	}
	for _, r := range w.reporters {
		r.Report(report)
	}
	w.opts.Metrics.Verdict(ctx, report.VerdictName)

	return report, nil
}

// Stats returns (cycles, degraded) counts atomically.
func (w *WatchdogController) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&w.cycles), atomic.LoadUint64(&w.degraded)
}

// Wait blocks until the watchdog goroutine has exited.
func (w *WatchdogController) Wait() {
	w.wg.Wait()
}
