package views

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"telemetry-logger/models"
	"telemetry-logger/utils"
)

// StatsFunc returns a snapshot of pipeline counters for /stats.
type StatsFunc func() map[string]uint64

// StatusBoard keeps the latest watchdog verdict and serves it over HTTP:
//
//	GET /healthz  200 when the last verdict was healthy, 503 otherwise
//	GET /stats    pipeline counters plus verdict tallies
type StatusBoard struct {
	mu       sync.RWMutex
	last     models.VerdictReport
	reported bool
	healthy  uint64
	degraded uint64

	stats StatsFunc
}

func NewStatusBoard(stats StatsFunc) *StatusBoard {
	return &StatusBoard{stats: stats}
}

// Report records one watchdog verdict.
func (b *StatusBoard) Report(r models.VerdictReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = r
	b.reported = true
	if r.Verdict == models.Healthy {
		b.healthy++
	} else {
		b.degraded++
	}
}

// Last returns the most recent verdict and whether one has been reported.
func (b *StatusBoard) Last() (models.VerdictReport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.reported
}

// Handler builds the gin router.
func (b *StatusBoard) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", b.handleHealth)
	r.GET("/stats", b.handleStats)
	return r
}

func (b *StatusBoard) handleHealth(c *gin.Context) {
	last, ok := b.Last()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"verdict": "pending"})
		return
	}
	last.VerdictName = last.Verdict.String()
	code := http.StatusOK
	if last.Verdict != models.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, last)
}

func (b *StatusBoard) handleStats(c *gin.Context) {
	out := map[string]uint64{}
	if b.stats != nil {
		for k, v := range b.stats() {
			out[k] = v
		}
	}
	b.mu.RLock()
	out["verdicts_healthy"] = b.healthy
	out["verdicts_degraded"] = b.degraded
	b.mu.RUnlock()
	c.JSON(http.StatusOK, out)
}

// Serve listens on addr until ctx is cancelled.
func (b *StatusBoard) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	utils.L().Info("status board listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
