// Package health maintains a registry of liveness probes that a
// background checker re-evaluates on an interval, plus an HTTP handler
// reporting the cached results.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProbeFunc reports whether one dependency is usable. A nil error
// means healthy.
type ProbeFunc func(ctx context.Context) error

type Result struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

type Checker struct {
	probes   map[string]ProbeFunc
	results  map[string]Result
	interval time.Duration
	timeout  time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewChecker(interval time.Duration, logger *slog.Logger) *Checker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		probes:   make(map[string]ProbeFunc),
		results:  make(map[string]Result),
		interval: interval,
		timeout:  5 * time.Second,
		stop:     make(chan struct{}),
		logger:   logger,
	}
}

// Register adds a probe. Probes start out healthy until their first
// evaluation. Register before Start.
func (c *Checker) Register(name string, probe ProbeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
	c.results[name] = Result{Healthy: true}
}

func (c *Checker) Start() {
	c.wg.Add(1)
	go c.checkLoop()
}

func (c *Checker) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Checker) checkLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.checkAll() // Initial check

	for {
		select {
		case <-ticker.C:
			c.checkAll()
		case <-c.stop:
			return
		}
	}
}

func (c *Checker) checkAll() {
	c.mu.RLock()
	probes := make(map[string]ProbeFunc, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	for name, probe := range probes {
		result := c.runProbe(probe)

		if !result.Healthy {
			c.logger.Warn("health probe failing", "probe", name, "error", result.Error)
		}

		c.mu.Lock()
		c.results[name] = result
		c.mu.Unlock()
	}
}

func (c *Checker) runProbe(probe ProbeFunc) Result {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result := Result{Healthy: true, CheckedAt: time.Now()}
	if err := probe(ctx); err != nil {
		result.Healthy = false
		result.Error = err.Error()
	}
	return result
}

// Snapshot returns a copy of the latest probe results.
func (c *Checker) Snapshot() map[string]Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Result, len(c.results))
	for name, result := range c.results {
		out[name] = result
	}
	return out
}

// Healthy reports whether every probe passed its last evaluation.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, result := range c.results {
		if !result.Healthy {
			return false
		}
	}
	return true
}

// Handler serves the cached results as JSON, 200 when everything is
// healthy and 503 otherwise.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if !c.Healthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"checks": c.Snapshot(),
		})
	})
}
