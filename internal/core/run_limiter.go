package core

// run_limiter.go bounds the number of cleaning runs executing at once.
//
// Each run holds a whole table in memory, so the limiter caps parallel runs
// at a configurable maximum. When every slot is taken, new runs wait up to
// maxWait before failing with ErrTooManyRuns. WaitForDrain lets shutdown
// block until in-flight runs finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRuns is returned when all run slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// DefaultMaxConcurrentRuns is the default limit for parallel runs.
const DefaultMaxConcurrentRuns = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// RunLimiter controls concurrent cleaning runs using a semaphore.
type RunLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewRunLimiter creates a limiter that allows at most maxConcurrent simultaneous runs.
// Runs that cannot acquire a slot within maxWait receive ErrTooManyRuns.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &RunLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a run slot.
// Returns nil on success, ErrTooManyRuns if the wait expires.
// The caller MUST call Release() when the run completes (use defer).
func (l *RunLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		runsActive.Inc()
		return nil

	case <-waitCtx.Done():
		// Original context cancelled vs wait expired
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		runsActive.Inc()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	runsActive.Dec()

	<-l.semaphore
}

// ActiveCount returns the number of currently active runs.
func (l *RunLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent runs.
func (l *RunLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *RunLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active runs complete or ctx is cancelled.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of the limiter's state.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for the health endpoint.
func (l *RunLimiter) Status() RunLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return RunLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
