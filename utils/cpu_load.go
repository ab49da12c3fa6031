package utils

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// CPUEstimator supplies the CPU-load figure stamped on every record.
type CPUEstimator interface {
	CPUPercent() uint32
}

// StaticCPU always reports the same load.
type StaticCPU uint32

func (s StaticCPU) CPUPercent() uint32 { return uint32(s) }

// processTimes is the part of *process.Process the estimator uses.
type processTimes interface {
	Percent(interval time.Duration) (float64, error)
}

// ProcessCPU reports this process's share of machine CPU capacity,
// measured between successive calls.
type ProcessCPU struct {
	mu   sync.Mutex
	proc processTimes
	ncpu int
	last uint32
}

// NewProcessCPU samples the current process. The first reading covers the
// interval since construction.
func NewProcessCPU() (*ProcessCPU, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", os.Getpid(), err)
	}
	return newProcessCPU(p, runtime.NumCPU())
}

func newProcessCPU(p processTimes, ncpu int) (*ProcessCPU, error) {
	if ncpu <= 0 {
		ncpu = 1
	}
	// Prime the baseline; gopsutil returns 0 on the first call.
	if _, err := p.Percent(0); err != nil {
		return nil, fmt.Errorf("read process cpu: %w", err)
	}
	return &ProcessCPU{proc: p, ncpu: ncpu}, nil
}

// CPUPercent returns 0..100. Any busy time rounds up to at least 1; a
// failed read repeats the previous figure.
func (c *ProcessCPU) CPUPercent() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	pct, err := c.proc.Percent(0)
	if err != nil {
		return c.last
	}
	// gopsutil reports relative to one core.
	pct /= float64(c.ncpu)
	switch {
	case pct <= 0:
		c.last = 0
	case pct >= 100:
		c.last = 100
	default:
		c.last = uint32(math.Ceil(pct))
	}
	return c.last
}
