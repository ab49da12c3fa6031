// Package queue holds the bounded sample queue between the producer and the
// recording consumer.
package queue

import (
	"context"
	"sync"

	"telemetry-logger/models"
	"telemetry-logger/utils"
)

// DefaultCapacity is the default queue depth.
const DefaultCapacity = 100

// SampleQueue is a fixed-capacity FIFO ring buffer of averaged samples,
// intended for one producer and one consumer. The backing array is
// allocated once at construction; enqueue and dequeue never allocate.
type SampleQueue struct {
	mu    sync.Mutex
	slots []models.AxisSample
	head  int // index of the oldest item
	count int

	// One-slot wakeup tokens. A stale token only costs a spurious retry.
	notEmpty chan struct{}
	notFull  chan struct{}

	clock utils.Clock
}

// NewSampleQueue creates a queue of the given capacity (DefaultCapacity if
// capacity <= 0). Timeouts are measured on clock.
func NewSampleQueue(capacity int, clock utils.Clock) *SampleQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SampleQueue{
		slots:    make([]models.AxisSample, capacity),
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		clock:    clock,
	}
}

func (q *SampleQueue) push(s models.AxisSample) bool {
	q.mu.Lock()
	if q.count == len(q.slots) {
		q.mu.Unlock()
		return false
	}
	q.slots[(q.head+q.count)%len(q.slots)] = s
	q.count++
	q.mu.Unlock()
	signal(q.notEmpty)
	return true
}

func (q *SampleQueue) pop() (models.AxisSample, bool) {
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return models.AxisSample{}, false
	}
	s := q.slots[q.head]
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	q.mu.Unlock()
	signal(q.notFull)
	return s, true
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// TryEnqueue appends s, waiting up to timeout ticks for space. It returns
// false when the queue is still full after the timeout; the queue is left
// unchanged in that case.
func (q *SampleQueue) TryEnqueue(s models.AxisSample, timeout utils.Tick) bool {
	if q.push(s) {
		return true
	}
	if timeout == 0 {
		return false
	}
	deadline := q.clock.After(timeout)
	for {
		select {
		case <-q.notFull:
			if q.push(s) {
				return true
			}
		case <-deadline:
			return q.push(s)
		}
	}
}

// Dequeue removes the oldest sample, blocking until one is available, the
// timeout elapses, or ctx is done. utils.WaitForever disables the timeout.
func (q *SampleQueue) Dequeue(ctx context.Context, timeout utils.Tick) (models.AxisSample, bool) {
	if s, ok := q.pop(); ok {
		return s, true
	}
	if timeout == 0 {
		return models.AxisSample{}, false
	}
	var deadline <-chan struct{}
	if timeout != utils.WaitForever {
		deadline = q.clock.After(timeout)
	}
	for {
		select {
		case <-ctx.Done():
			return models.AxisSample{}, false
		case <-q.notEmpty:
			if s, ok := q.pop(); ok {
				return s, true
			}
		case <-deadline:
			return q.pop()
		}
	}
}

// Len reports the number of queued samples.
func (q *SampleQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap reports the fixed capacity.
func (q *SampleQueue) Cap() int {
	return len(q.slots)
}
