package detector

import (
	"context"
	"errors"
	"fmt"
)

// ErrPoolClosed is returned when a detection is requested after shutdown
var ErrPoolClosed = errors.New("detector pool is closed")

// PooledDetector bounds concurrent access to a Detector. Each call borrows a
// worker for the duration of one inference and always waits for it to
// finish; an in-flight inference is never abandoned.
type PooledDetector struct {
	inner Detector
	pool  *WorkerPool
}

type detectOutcome struct {
	raw []RawDetection
	err error
}

// NewPooledDetector wraps inner with the given number of workers. inner must
// tolerate that many concurrent Detect calls; use 1 for a model that is not
// safe for concurrent use.
func NewPooledDetector(inner Detector, workers int) *PooledDetector {
	pool := NewWorkerPool(workers)
	pool.Start()
	return &PooledDetector{inner: inner, pool: pool}
}

// Detect runs inner.Detect on a pool worker
func (p *PooledDetector) Detect(ctx context.Context, imagePath string) ([]RawDetection, error) {
	done := make(chan detectOutcome, 1)

	job := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- detectOutcome{err: fmt.Errorf("detector panicked: %v", r)}
			}
		}()
		raw, err := p.inner.Detect(ctx, imagePath)
		done <- detectOutcome{raw: raw, err: err}
	}

	if !p.pool.Submit(job) {
		return nil, ErrPoolClosed
	}

	out := <-done
	return out.raw, out.err
}

// CheckHealth delegates to inner when it can probe its backend
func (p *PooledDetector) CheckHealth(ctx context.Context) error {
	if hc, ok := p.inner.(HealthChecker); ok {
		return hc.CheckHealth(ctx)
	}
	return nil
}

// Stats exposes the underlying pool counters
func (p *PooledDetector) Stats() PoolStats {
	return p.pool.GetStats()
}

// Close stops the pool, waits for in-flight inferences and closes inner
func (p *PooledDetector) Close() error {
	p.pool.Close()
	p.pool.Wait()
	return p.inner.Close()
}
