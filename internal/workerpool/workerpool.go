// Package workerpool bounds how many requests are handled at once,
// standing in for a fixed-size worker pool: excess requests queue on
// Acquire until a slot frees up or their context ends.
package workerpool

import (
	"context"
	"net/http"
	"sync/atomic"
)

type Pool struct {
	slots    chan struct{}
	size     int
	inFlight atomic.Int64
	peak     atomic.Int64
	rejected atomic.Int64
}

type Stats struct {
	Size     int   `json:"size"`
	InFlight int64 `json:"in_flight"`
	Peak     int64 `json:"peak"`
	Rejected int64 `json:"rejected"`
}

// New creates a pool with the given number of slots. Size 0 means
// unbounded: acquisition always succeeds but in-flight accounting
// still runs.
func New(size int) *Pool {
	p := &Pool{size: size}
	if size > 0 {
		p.slots = make(chan struct{}, size)
	}
	return p
}

// Acquire blocks until a slot is free or ctx ends.
func (p *Pool) Acquire(ctx context.Context) error {
	if p.slots == nil {
		p.admit()
		return nil
	}

	select {
	case p.slots <- struct{}{}:
		p.admit()
		return nil
	case <-ctx.Done():
		p.rejected.Add(1)
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking.
func (p *Pool) TryAcquire() bool {
	if p.slots == nil {
		p.admit()
		return true
	}

	select {
	case p.slots <- struct{}{}:
		p.admit()
		return true
	default:
		p.rejected.Add(1)
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (p *Pool) Release() {
	p.inFlight.Add(-1)
	if p.slots != nil {
		<-p.slots
	}
}

func (p *Pool) admit() {
	current := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}

func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Stats() Stats {
	return Stats{
		Size:     p.size,
		InFlight: p.inFlight.Load(),
		Peak:     p.peak.Load(),
		Rejected: p.rejected.Load(),
	}
}

// Wrap gates an http.Handler on the pool. Requests wait for a slot and
// get a 503 if their context ends first.
func (p *Pool) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := p.Acquire(r.Context()); err != nil {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		defer p.Release()

		next.ServeHTTP(w, r)
	})
}
