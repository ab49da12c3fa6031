package utils

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ─── Pipeline configs ───────────────────────────────────────────────────

// Rate-wait modes for the consumer's persist throttle.
const (
	RateWaitSpin  = "spin"
	RateWaitSleep = "sleep"
)

type PipelineConfig struct {
	TickMs              int    `yaml:"tick_ms" mapstructure:"tick_ms"`
	QueueCapacity       int    `yaml:"queue_capacity" mapstructure:"queue_capacity"`
	SamplesPerAverage   int    `yaml:"samples_per_average" mapstructure:"samples_per_average"`
	EnqueueTimeoutTicks uint64 `yaml:"enqueue_timeout_ticks" mapstructure:"enqueue_timeout_ticks"`
	ProducerDelayTicks  uint64 `yaml:"producer_cycle_delay_ticks" mapstructure:"producer_cycle_delay_ticks"`
	PersistPeriodTicks  uint64 `yaml:"persist_period_ticks" mapstructure:"persist_period_ticks"`
	RateWait            string `yaml:"rate_wait" mapstructure:"rate_wait"` // "spin" or "sleep"
	WatchdogPeriodTicks uint64 `yaml:"watchdog_period_ticks" mapstructure:"watchdog_period_ticks"`
	WatchdogWindowTicks uint64 `yaml:"watchdog_window_ticks" mapstructure:"watchdog_window_ticks"`
}

type SensorConfig struct {
	Source     string `yaml:"source" mapstructure:"source"` // "simulated" or "serial"
	SerialPort string `yaml:"serial_port" mapstructure:"serial_port"`
	BaudRate   int    `yaml:"baud_rate" mapstructure:"baud_rate"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "file" or "sqlite"
	Path    string `yaml:"path" mapstructure:"path"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

type MetricsConfig struct {
	OTLPEndpoint    string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	Insecure        bool   `yaml:"insecure" mapstructure:"insecure"`
	IntervalSeconds int    `yaml:"interval_seconds" mapstructure:"interval_seconds"`
}

type RunConfig struct {
	DurationSeconds      int `yaml:"duration_seconds" mapstructure:"duration_seconds"`
	StatsIntervalSeconds int `yaml:"stats_interval_seconds" mapstructure:"stats_interval_seconds"`
}

// Config is the top-level structure for pipeline.yaml.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Sensor   SensorConfig   `yaml:"sensor" mapstructure:"sensor"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Status   StatusConfig   `yaml:"status" mapstructure:"status"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Run      RunConfig      `yaml:"run" mapstructure:"run"`
}

// DefaultConfig returns the stock timing: 1 ms ticks,
// 100-slot queue, 100 reads per average, 1000-tick persist floor and
// watchdog period, 1-tick check window.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			TickMs:              1,
			QueueCapacity:       100,
			SamplesPerAverage:   100,
			EnqueueTimeoutTicks: 1,
			PersistPeriodTicks:  1000,
			RateWait:            RateWaitSpin,
			WatchdogPeriodTicks: 1000,
			WatchdogWindowTicks: 1,
		},
		Sensor: SensorConfig{
			Source:   "simulated",
			BaudRate: 115200,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "file3.txt",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 50,
		},
		Status: StatusConfig{
			Listen: "127.0.0.1:8089",
		},
		Metrics: MetricsConfig{
			Insecure:        true,
			IntervalSeconds: 10,
		},
		Run: RunConfig{
			StatsIntervalSeconds: 5,
		},
	}
}

// ─── Loaders ────────────────────────────────────────────────────────────

// LoadConfig reads pipeline.yaml on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DumpConfig renders cfg as YAML.
func DumpConfig(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline config: %w", err)
	}
	return out, nil
}

// Validate rejects settings the pipeline cannot honour.
func (c *Config) Validate() error {
	var errs []error
	p := c.Pipeline
	if p.TickMs <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.tick_ms must be positive, got %d", p.TickMs))
	}
	if p.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.queue_capacity must be positive, got %d", p.QueueCapacity))
	}
	if p.SamplesPerAverage <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.samples_per_average must be positive, got %d", p.SamplesPerAverage))
	}
	if p.RateWait != RateWaitSpin && p.RateWait != RateWaitSleep {
		errs = append(errs, fmt.Errorf("pipeline.rate_wait must be %q or %q, got %q", RateWaitSpin, RateWaitSleep, p.RateWait))
	}
	switch c.Sensor.Source {
	case "simulated":
	case "serial":
		if c.Sensor.SerialPort == "" {
			errs = append(errs, errors.New("sensor.serial_port is required for the serial source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sensor.source %q", c.Sensor.Source))
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid pipeline config: %w", errors.Join(errs...))
	}
	return nil
}
