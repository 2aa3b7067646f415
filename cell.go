package statebox

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"

	"github.com/goliatone/go-statebox/internal/values"
)

// delivery is one broadcast of a full state. It carries the change record and
// the most recent history entry as they were when the write happened, so a
// delivery queued behind a re-entrant write still diffs against its own
// predecessor. done is closed once every listener has seen the delivery.
type delivery struct {
	state    map[string]any
	change   map[string]any
	previous map[string]any
	done     chan struct{}
}

// cell holds the current state and multicasts new values to subscriptions.
// Consecutive deep-equal values are broadcast once.
type cell struct {
	mu            sync.Mutex
	value         map[string]any
	lastBroadcast map[string]any
	listeners     []*Subscription
	queue         []delivery
	draining      bool
	drainer       uint64
}

func newCell() *cell {
	initial := map[string]any{}
	return &cell{
		value:         initial,
		lastBroadcast: initial,
	}
}

// get returns the live state or a deep copy of it.
func (c *cell) get(byReference bool) map[string]any {
	c.mu.Lock()
	value := c.value
	c.mu.Unlock()
	if byReference {
		return value
	}
	return values.CloneMap(value)
}

// set replaces the held value and queues a delivery unless next equals the
// last broadcast value. It returns the delivery's done channel, or nil when
// nothing was queued; callers run drain once they released their own locks.
func (c *cell) set(next map[string]any, d delivery) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = next
	if values.Equal(next, c.lastBroadcast) {
		return nil
	}
	c.lastBroadcast = next
	d.state = next
	d.done = make(chan struct{})
	c.queue = append(c.queue, d)
	return d.done
}

// drain delivers queued values until the queue is empty. Only one goroutine
// drains at a time. Another goroutine arriving while a drain is active
// blocks until done is closed. A write made from a handler on the draining
// goroutine returns at once and is delivered after the current cycle.
func (c *cell) drain(done chan struct{}) {
	id := goroutineID()
	c.mu.Lock()
	if c.draining {
		reentrant := c.drainer == id
		c.mu.Unlock()
		if !reentrant && done != nil {
			<-done
		}
		return
	}
	c.draining = true
	c.drainer = id
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.drainer = 0
			c.mu.Unlock()
			return
		}
		next := c.queue[0]
		c.queue[0] = delivery{}
		c.queue = c.queue[1:]
		listeners := make([]*Subscription, len(c.listeners))
		copy(listeners, c.listeners)
		c.mu.Unlock()

		for _, sub := range listeners {
			sub.deliver(next)
		}
		close(next.done)
	}
}

// register adds sub. prime, when set, observes the value current at
// registration time before any later broadcast can reach sub.
func (c *cell) register(sub *Subscription, prime func(current map[string]any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, sub)
	if prime != nil {
		prime(c.value)
	}
}

func (c *cell) unregister(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	listeners := make([]*Subscription, 0, len(c.listeners))
	for _, existing := range c.listeners {
		if existing != sub {
			listeners = append(listeners, existing)
		}
	}
	c.listeners = listeners
}

// reset drops every listener and pending delivery, releasing writers that
// wait on them.
func (c *cell) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pending := range c.queue {
		close(pending.done)
	}
	c.listeners = nil
	c.queue = nil
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the current goroutine number from its stack header,
// "goroutine 18 [running]:".
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, goroutinePrefix)
	if i := bytes.IndexByte(buf, ' '); i > 0 {
		buf = buf[:i]
	}
	id, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
