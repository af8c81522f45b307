// Package pool manages the fixed set of render contexts.
//
// Contexts are created eagerly at startup and destroyed at shutdown;
// the only other context churn is replacing one that failed a draw.
// Acquisition is FIFO-fair through a weighted semaphore, so a burst of
// jobs cannot starve earlier waiters.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/aresmaps/mars_relief/internal/render"
	"github.com/aresmaps/mars_relief/internal/render/backend"
	"github.com/aresmaps/mars_relief/pkg/logger"
	"github.com/aresmaps/mars_relief/pkg/metrics"
)

var (
	// ErrExhausted means no context became free before the acquisition
	// timeout. Retriable backpressure, not a failure of the pool.
	ErrExhausted = errors.New("pool: no context available before timeout")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pool: closed")
)

const replaceRetryInterval = 2 * time.Second

type Pool struct {
	backend backend.Backend
	sem     *semaphore.Weighted
	size    int
	timeout time.Duration
	logger  logger.Logger

	mu     sync.Mutex
	free   []render.Context
	closed bool
}

// New creates a pool of size eagerly-constructed contexts.
func New(b backend.Backend, size int, timeout time.Duration, l logger.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		backend: b,
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		timeout: timeout,
		logger:  l,
		free:    make([]render.Context, 0, size),
	}

	for i := 0; i < size; i++ {
		c, err := b.NewContext()
		if err != nil {
			for _, created := range p.free {
				created.Destroy()
			}
			return nil, err
		}
		p.free = append(p.free, c)
	}

	l.Info("render context pool initialized", "size", size, "backend", b.Name())

	return p, nil
}

// Size returns the configured number of contexts.
func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until a context is free, the caller's context is
// cancelled, or the pool timeout elapses. Waiters are served in FIFO
// order.
func (p *Pool) Acquire(ctx context.Context) (render.Context, error) {
	start := time.Now()

	acqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(acqCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrExhausted
	}

	metrics.PoolAcquireWait.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.sem.Release(1)
		return nil, ErrClosed
	}

	// A permit guarantees a free context; the two are released together.
	c := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	metrics.ContextsInUse.Inc()

	return c, nil
}

// Release returns a context to the pool. An unhealthy context is
// destroyed and replaced so the pool converges back to full strength;
// the permit is handed back only once the replacement is in the free
// list, keeping capacity equal to healthy contexts.
func (p *Pool) Release(c render.Context) {
	metrics.ContextsInUse.Dec()

	if c.Healthy() {
		p.put(c)
		return
	}

	c.Destroy()
	metrics.ContextReplacements.Inc()
	p.logger.Warn("destroyed unhealthy render context, replacing")

	replacement, err := p.backend.NewContext()
	if err == nil {
		p.put(replacement)
		return
	}

	p.logger.Error("failed to replace render context, retrying in background", "error", err)
	go p.replaceLoop()
}

func (p *Pool) put(c render.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		c.Destroy()
		return
	}

	p.free = append(p.free, c)
	p.sem.Release(1)
}

func (p *Pool) replaceLoop() {
	for {
		time.Sleep(replaceRetryInterval)

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return
		}

		c, err := p.backend.NewContext()
		if err != nil {
			p.logger.Error("render context replacement still failing", "error", err)
			continue
		}

		p.put(c)
		p.logger.Info("render context replaced")
		return
	}
}

// Close waits for checked-out contexts to come back (bounded by ctx)
// and destroys everything. Acquire fails with ErrClosed afterwards.
func (p *Pool) Close(ctx context.Context) error {
	// Draining all permits waits for in-flight jobs to release.
	err := p.sem.Acquire(ctx, int64(p.Size()))

	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, c := range p.free {
		c.Destroy()
	}
	p.free = nil

	return err
}
