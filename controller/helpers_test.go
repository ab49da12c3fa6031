package controller

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"telemetry-logger/models"
)

// seqSource replays a fixed sequence of readings, wrapping at the end.
type seqSource struct {
	mu   sync.Mutex
	vals []models.AxisSample
	i    int
}

func (s *seqSource) Read() models.AxisSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

var errDiskGone = errors.New("disk gone")

// memStore is an in-memory RecordStore whose next failures can be scripted.
type memStore struct {
	mu       sync.Mutex
	lines    []string
	failNext int
}

func (m *memStore) AppendRecord(_ context.Context, rec []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errDiskGone
	}
	m.lines = append(m.lines, string(rec))
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

var tickField = regexp.MustCompile(`Time: (\d+),`)

func recordTick(t *testing.T, line string) uint64 {
	t.Helper()
	m := tickField.FindStringSubmatch(line)
	require.Len(t, m, 2, "no tick in %q", line)
	v, err := strconv.ParseUint(m[1], 10, 64)
	require.NoError(t, err)
	return v
}

const (
	testWait = 5 * time.Second
	testTick = time.Millisecond
)
