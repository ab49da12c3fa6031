package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"

	"telemetry-logger/models"
	"telemetry-logger/utils"
)

// SerialAxisReader decodes accelerometer lines arriving on a serial port.
// A background goroutine keeps the latest sample in a slot so that Read
// never waits on the device.
type SerialAxisReader struct {
	port   io.ReadCloser
	name   string
	latest atomic.Pointer[models.AxisSample]

	lines   uint64
	invalid uint64
	done    chan struct{}
	once    sync.Once
}

// OpenSerialAxisReader opens the serial device.
func OpenSerialAxisReader(cfg utils.SensorConfig) (*SerialAxisReader, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = 115200
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.SerialPort,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.SerialPort, err)
	}
	return NewSerialAxisReader(cfg.SerialPort, p), nil
}

// NewSerialAxisReader wraps an already-open line stream.
func NewSerialAxisReader(name string, port io.ReadCloser) *SerialAxisReader {
	r := &SerialAxisReader{port: port, name: name, done: make(chan struct{})}
	r.latest.Store(&models.AxisSample{})
	return r
}

// Start launches the line decoder; it exits when ctx is cancelled or the
// stream ends.
func (r *SerialAxisReader) Start(ctx context.Context) {
	go r.run()
	go func() {
		select {
		case <-ctx.Done():
			r.Close()
		case <-r.done:
		}
	}()
	utils.L().Info("serial axis reader started (port=%s)", r.name)
}

func (r *SerialAxisReader) run() {
	defer close(r.done)

	sc := bufio.NewScanner(r.port)
	for sc.Scan() {
		atomic.AddUint64(&r.lines, 1)
		s, err := ParseAxisLine(sc.Text())
		if err != nil {
			atomic.AddUint64(&r.invalid, 1)
			continue
		}
		r.latest.Store(&s)
	}
	if err := sc.Err(); err != nil {
		utils.L().Warn("serial axis reader %s: %v", r.name, err)
	}
	utils.L().Info("serial axis reader stopped (lines=%d, invalid=%d)",
		atomic.LoadUint64(&r.lines), atomic.LoadUint64(&r.invalid))
}

// Read returns the most recently decoded sample.
func (r *SerialAxisReader) Read() models.AxisSample {
	return *r.latest.Load()
}

// Done is closed once the decoder goroutine has exited.
func (r *SerialAxisReader) Done() <-chan struct{} {
	return r.done
}

// Close releases the port. Safe to call more than once.
func (r *SerialAxisReader) Close() error {
	var err error
	r.once.Do(func() { err = r.port.Close() })
	return err
}

// Stats returns (lines, invalid) counts atomically.
func (r *SerialAxisReader) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&r.lines), atomic.LoadUint64(&r.invalid)
}
