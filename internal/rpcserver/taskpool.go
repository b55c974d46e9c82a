package rpcserver

import (
	"context"
	"sync"
)

// taskPool tracks every in-flight stream handler of one Server, across all
// of its connections, so Close can cancel all of them at once when Listen
// returns. It deliberately does not wait for them to finish — a handler's
// own context cancellation is expected to unwind it promptly, and Listen
// must not block server shutdown on a slow or stuck stream.
type taskPool struct {
	mu     sync.Mutex
	cancel map[uint64]context.CancelFunc
	nextID uint64
	closed bool
}

func newTaskPool() *taskPool {
	return &taskPool{cancel: make(map[uint64]context.CancelFunc)}
}

// Spawn runs fn on its own goroutine with a context derived from ctx,
// registering its CancelFunc so Close can cancel it. If the pool is already
// closed, fn is not run.
func (p *taskPool) Spawn(ctx context.Context, fn func(context.Context)) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	taskCtx, cancel := context.WithCancel(ctx)
	id := p.nextID
	p.nextID++
	p.cancel[id] = cancel
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.cancel, id)
			p.mu.Unlock()
			cancel()
		}()
		fn(taskCtx)
	}()
}

// Close cancels every currently running task and marks the pool closed so
// no further tasks are spawned. It does not wait for tasks to exit.
func (p *taskPool) Close() {
	p.mu.Lock()
	p.closed = true
	cancels := p.cancel
	p.cancel = make(map[uint64]context.CancelFunc)
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
