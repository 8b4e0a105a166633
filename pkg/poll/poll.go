// Package poll runs a function on a fixed interval until it asks to stop or is stopped.
package poll

import (
	"context"
	"sync"
	"time"
)

// Func is one tick. Returning true ends the task.
type Func func(ctx context.Context) (done bool)

// Task is a running poll loop. The zero value is not usable; use Start.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches fn every interval on a single goroutine. Ticks never overlap:
// a tick that takes longer than interval delays the next one instead of stacking.
// The first call happens after one interval.
func Start(parent context.Context, interval time.Duration, fn Func) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Stop 可能和 tick 同时到达，再检查一次
				if ctx.Err() != nil {
					return
				}
				if fn(ctx) {
					return
				}
			}
		}
	}()
	return t
}

// Stop cancels the task. It does not block, so it is safe to call from inside fn.
// No tick starts after Stop returns.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.once.Do(t.cancel)
}

// Done is closed once the loop goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the loop goroutine has exited.
func (t *Task) Wait() {
	if t == nil {
		return
	}
	<-t.done
}
