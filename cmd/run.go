package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"telemetry-logger/controller"
	"telemetry-logger/services/ingest"
	"telemetry-logger/utils"
	"telemetry-logger/views"
)

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ── Logger ───────────────────────────────────────────────────────
	level, _ := utils.ParseLevel(cfg.Logging.Level)
	logger := utils.InitLoggerWithOptions(level, utils.LogFileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logger.Close()

	runID := uuid.NewString()

	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  telemetry-logger  ·  run %s", runID)
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d", runtime.GOMAXPROCS(0), os.Getpid())
	utils.L().Info("═══════════════════════════════════════════════════")

	// ── Context with OS signal cancellation ──────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if d := cfg.Run.DurationSeconds; d > 0 {
		var timerCancel context.CancelFunc
		ctx, timerCancel = context.WithTimeout(ctx, time.Duration(d)*time.Second)
		defer timerCancel()
		utils.L().Info("pipeline will auto-stop after %ds", d)
	}

	// ── Metrics ──────────────────────────────────────────────────────
	mp, shutdownMetrics, err := utils.InitMeterProvider(ctx, cfg.Metrics)
	if err != nil {
		utils.L().Fatal("init metrics: %v", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownMetrics(sctx); err != nil {
			utils.L().Warn("metrics shutdown: %v", err)
		}
	}()
	metrics, err := utils.NewMetrics(mp)
	if err != nil {
		utils.L().Fatal("init metrics instruments: %v", err)
	}

	// ── Sensor source ────────────────────────────────────────────────
	var source ingest.AxisSource
	switch cfg.Sensor.Source {
	case "serial":
		reader, err := ingest.OpenSerialAxisReader(cfg.Sensor)
		if err != nil {
			utils.L().Fatal("open sensor: %v", err)
		}
		defer reader.Close()
		reader.Start(ctx)
		source = reader
	default:
		seed, _ := cmd.Flags().GetInt64("seed")
		source = ingest.NewSimulatedAxisReader(seed, 8)
	}

	// ── Record store ─────────────────────────────────────────────────
	store, err := views.OpenRecordStore(cfg.Storage, runID)
	if err != nil {
		utils.L().Fatal("open record store: %v", err)
	}
	defer store.Close()
	utils.L().Info("recording to %s (%s)", cfg.Storage.Path, cfg.Storage.Backend)

	// ── Pipeline assembly ────────────────────────────────────────────
	//
	//  Sensor ──► Producer ──► SampleQueue ──► Recorder ──► RecordStore
	//                │                            │
	//                └──────► heartbeat.Signal ◄──┘
	//                               │
	//                           Watchdog ──► log / status board / metrics

	cpu, err := utils.NewProcessCPU()
	if err != nil {
		utils.L().Fatal("init cpu estimator: %v", err)
	}

	clock := utils.NewSchedulerClock(time.Duration(cfg.Pipeline.TickMs) * time.Millisecond)

	var pipeline *controller.PipelineController
	board := views.NewStatusBoard(func() map[string]uint64 { return pipeline.Stats() })

	pipeline = controller.NewPipelineController(cfg.Pipeline, clock, source, store,
		cpu, metrics, controller.LogReporter{}, board)
	pipeline.Start(ctx)

	if cfg.Status.Enabled {
		go func() {
			if err := board.Serve(ctx, cfg.Status.Listen); err != nil {
				utils.L().Error("status board: %v", err)
			}
		}()
	}

	utils.L().Info("pipeline running, press Ctrl+C to stop")

	// ── Stats ticker ─────────────────────────────────────────────────
	interval := cfg.Run.StatsIntervalSeconds
	if interval <= 0 {
		interval = 5
	}
	statsTicker := time.NewTicker(time.Duration(interval) * time.Second)
	defer statsTicker.Stop()

	// ── Main event loop ──────────────────────────────────────────────
loop:
	for {
		select {
		case sig := <-sigCh:
			utils.L().Info("received signal: %v, shutting down", sig)
			cancel()
			break loop

		case <-ctx.Done():
			break loop

		case <-statsTicker.C:
			utils.L().Info("── stats ─────────────────────────")
			pipeline.LogStats()
			utils.L().Info("──────────────────────────────────")
		}
	}

	pipeline.Wait()
	pipeline.LogStats()

	fmt.Println("\n✓ telemetry-logger finished. Records at:", cfg.Storage.Path)
	return nil
}
