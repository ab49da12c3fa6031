// Package heartbeat implements the two-bit liveness signal shared by the
// producer, the recording consumer and the watchdog.
package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"

	"telemetry-logger/utils"
)

// Bits is a set of heartbeat flags.
type Bits uint32

const (
	ProducerAlive Bits = 1 << 0
	ConsumerAlive Bits = 1 << 1

	AllAlive = ProducerAlive | ConsumerAlive
)

// Has reports whether every bit in mask is set in b.
func (b Bits) Has(mask Bits) bool {
	return b&mask == mask
}

// Signal is an event-group style bit set. Each bit is raised only by its
// owning task and cleared only by the watchdog through WaitAndClear.
type Signal struct {
	mu      sync.Mutex
	bits    Bits
	changed chan struct{} // closed and replaced on every Set

	clock    utils.Clock
	observed atomic.Uint32
}

// NewSignal creates a signal with all bits clear. Wait timeouts are
// measured on clock.
func NewSignal(clock utils.Clock) *Signal {
	return &Signal{
		changed: make(chan struct{}),
		clock:   clock,
	}
}

// Set raises the given bits and wakes any waiter. Raising bits that are
// already set is a no-op and does not allocate.
func (s *Signal) Set(b Bits) {
	s.mu.Lock()
	if s.bits|b != s.bits {
		s.bits |= b
		close(s.changed)
		s.changed = make(chan struct{})
	}
	s.mu.Unlock()
}

// Bits returns the current bit set without modifying it.
func (s *Signal) Bits() Bits {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bits
}

// WaitAndClear waits up to timeout ticks for every bit in mask to be set,
// then clears the mask bits whether or not the wait succeeded. It returns
// the bits that were set at the moment the wait ended, which also become
// the value reported by LastObserved.
func (s *Signal) WaitAndClear(ctx context.Context, mask Bits, timeout utils.Tick) Bits {
	var deadline <-chan struct{}
	for {
		s.mu.Lock()
		if s.bits.Has(mask) {
			return s.clearLocked(mask)
		}
		changed := s.changed
		s.mu.Unlock()

		if timeout == 0 {
			break
		}
		if deadline == nil && timeout != utils.WaitForever {
			deadline = s.clock.After(timeout)
		}

		select {
		case <-changed:
			continue
		case <-deadline:
		case <-ctx.Done():
		}
		break
	}

	s.mu.Lock()
	return s.clearLocked(mask)
}

// clearLocked must be called with s.mu held; it releases it.
func (s *Signal) clearLocked(mask Bits) Bits {
	seen := s.bits
	s.bits &^= mask
	s.mu.Unlock()
	s.observed.Store(uint32(seen))
	return seen
}

// LastObserved returns the bits seen by the most recent WaitAndClear.
func (s *Signal) LastObserved() Bits {
	return Bits(s.observed.Load())
}
