package statebox

import (
	"context"
	"sync"
)

// taskLoop runs deferred tasks one at a time, in submission order, on a
// dedicated goroutine.
type taskLoop struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
	pending sync.WaitGroup
}

func newTaskLoop() *taskLoop {
	l := &taskLoop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *taskLoop) run() {
	defer close(l.stopped)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			l.mu.Lock()
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
		l.pending.Done()
	}
}

// schedule queues task for a later turn.
func (l *taskLoop) schedule(task func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, task)
	l.pending.Add(1)
	l.mu.Unlock()
	l.signal()
	return nil
}

func (l *taskLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// wait blocks until every scheduled task has run or ctx is done.
func (l *taskLoop) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting tasks, runs what is already queued and waits for the
// loop goroutine to exit.
func (l *taskLoop) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.mu.Unlock()
	l.signal()
	<-l.stopped
}
