// Package pool provides a fixed-capacity execution pool for blocking work.
// Callers beyond capacity wait for a free slot; there is no queue limit.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned when work is submitted after Close.
	ErrClosed = errors.New("pool: closed")
	// ErrTaskPanicked wraps a panic recovered from a task.
	ErrTaskPanicked = errors.New("pool: task panicked")
)

// Task is a unit of blocking work. The context passed in is the one given to Do.
type Task func(ctx context.Context) error

// Pool runs at most capacity tasks concurrently.
type Pool struct {
	slots  chan struct{}
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	active atomic.Int64
}

// New creates a pool with the given capacity. Non-positive capacities become 1.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{slots: make(chan struct{}, capacity)}
}

// Capacity returns the maximum number of concurrently running tasks.
func (p *Pool) Capacity() int {
	return cap(p.slots)
}

// Active returns the number of tasks currently running.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Do waits for a free slot and runs task on a pool goroutine, blocking until it
// returns. Only the wait honours ctx: a task that has started is never
// abandoned, so bounding its runtime is the task's own concern. A panicking
// task returns an error wrapping ErrTaskPanicked.
func (p *Pool) Do(ctx context.Context, task Task) error {
	if err := p.enter(); err != nil {
		return err
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		p.wg.Done()
		return fmt.Errorf("pool: waiting for slot: %w", ctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		p.active.Add(1)
		defer func() {
			p.active.Add(-1)
			<-p.slots
			p.wg.Done()
		}()
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			}
		}()
		done <- task(ctx)
	}()

	return <-done
}

// enter registers a caller unless the pool is closed.
func (p *Pool) enter() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.wg.Add(1)
	return nil
}

// Close stops accepting work and waits until queued and running tasks finish
// or ctx expires.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool: drain: %w", ctx.Err())
	}
}
