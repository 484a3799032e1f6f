package media

import (
	"context"
	"errors"
	"sync"

	"github.com/previewvault/backend/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Do after Close has been called
var ErrPoolClosed = errors.New("worker pool closed")

// Pool caps how many engine jobs run at once across all requests.
// A job runs on the goroutine that called Do while it holds a slot,
// so Do returns only once the job itself has returned.
type Pool struct {
	slots  *semaphore.Weighted
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool that runs at most workers jobs at a time
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{slots: semaphore.NewWeighted(int64(workers))}
}

// Do waits for a free slot and runs fn in it.
// fn receives ctx, so cancelling ctx also stops the running job.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()
	defer p.wg.Done()

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.slots.Release(1)

	// Acquire can succeed on an already cancelled context
	if err := ctx.Err(); err != nil {
		return err
	}

	metrics.EngineInFlight.Inc()
	defer metrics.EngineInFlight.Dec()
	return fn(ctx)
}

// Close stops accepting jobs and waits for running ones to return
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
