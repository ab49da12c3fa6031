package ingest

import (
	"math"
	"math/rand"
	"sync"

	"telemetry-logger/models"
)

// SimulatedAxisReader synthesises accelerometer readings in milli-g: a slow
// sway on X/Y, gravity on Z, plus uniform noise.
type SimulatedAxisReader struct {
	mu    sync.Mutex
	rng   *rand.Rand
	step  float64
	noise int32
}

// NewSimulatedAxisReader creates a reader with the given RNG seed and
// noise amplitude (milli-g, <= 0 selects 8).
func NewSimulatedAxisReader(seed int64, noise int32) *SimulatedAxisReader {
	if noise <= 0 {
		noise = 8
	}
	return &SimulatedAxisReader{
		rng:   rand.New(rand.NewSource(seed)),
		noise: noise,
	}
}

func (r *SimulatedAxisReader) Read() models.AxisSample {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := models.AxisSample{
		X: int32(20*math.Sin(r.step)) + r.jitter(),
		Y: int32(10*math.Cos(r.step)) + r.jitter(),
		Z: 1000 + r.jitter(),
	}
	r.step += 0.0001
	return s
}

func (r *SimulatedAxisReader) jitter() int32 {
	return r.rng.Int31n(2*r.noise+1) - r.noise
}
