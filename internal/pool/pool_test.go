package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.Equal(t, 3, New(3).Capacity())
	assert.Equal(t, 1, New(0).Capacity())
	assert.Equal(t, 1, New(-2).Capacity())
}

func TestPool_Do_ReturnsTaskError(t *testing.T) {
	p := New(1)
	want := errors.New("boom")

	err := p.Do(context.Background(), func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)

	err = p.Do(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestPool_Do_BoundsConcurrency(t *testing.T) {
	const capacity = 3
	const callers = 10

	p := New(capacity)
	var running, peak atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.Do(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				<-release
				running.Add(-1)
				return nil
			})
		}()
	}

	require.Eventually(t, func() bool { return p.Active() == capacity }, time.Second, 5*time.Millisecond)
	// Extra callers are waiting, not running.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(capacity), running.Load())

	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "excess callers must wait, not fail")
	}
	assert.Equal(t, int64(capacity), peak.Load())
	assert.Equal(t, 0, p.Active())
}

func TestPool_Do_WaitHonoursContext(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := p.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	close(release)
	require.NoError(t, p.Close(context.Background()))
}

func TestPool_Close_DrainsInFlight(t *testing.T) {
	p := New(2)
	var finished atomic.Bool
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return nil
		})
	}()
	<-started

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, finished.Load(), "Close must wait for running tasks")

	err := p.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_Close_Timeout(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	defer close(release)

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_Do_RecoversPanic(t *testing.T) {
	p := New(1)

	err := p.Do(context.Background(), func(context.Context) error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskPanicked)
	assert.Zero(t, p.Active())

	// The slot was released.
	err = p.Do(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}
