package canbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// LoopbackBus is an in-memory CAN bus for tests and dry runs.
// Multiple endpoints opened from the same bus can exchange frames. Like a
// controller receive FIFO, an endpoint that is not read loses frames once
// its queue is full; Send never blocks on a slow receiver.
type LoopbackBus struct {
	mu        sync.RWMutex
	closed    bool
	endpoints map[*loopEndpoint]struct{}
	overruns  atomic.Uint64
}

// LoopbackQueueLen is the receive queue length of each endpoint.
const LoopbackQueueLen = 64

// NewLoopbackBus creates a new loopback bus.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{endpoints: make(map[*loopEndpoint]struct{})}
}

// Open creates a new endpoint attached to the bus.
func (b *LoopbackBus) Open() Bus {
	ep := &loopEndpoint{
		bus:    b,
		ch:     make(chan Frame, LoopbackQueueLen),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ep.dead = true
		close(ep.closed)
		return ep
	}
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()
	return ep
}

// Opener adapts the bus to the bridge's per-direction open function. The
// interface name is ignored.
func (b *LoopbackBus) Opener(string) (Bus, error) {
	return b.Open(), nil
}

// Overruns returns the number of frames lost to full endpoint queues.
func (b *LoopbackBus) Overruns() uint64 {
	return b.overruns.Load()
}

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.closeNoLock()
	}
	b.endpoints = nil
	b.mu.Unlock()
	return nil
}

// The data channel is never closed; closed signals shutdown so a concurrent
// Send cannot race a close.
type loopEndpoint struct {
	bus    *LoopbackBus
	ch     chan Frame
	mu     sync.Mutex
	dead   bool
	closed chan struct{}
}

// Send broadcasts the frame to all other endpoints on the same bus.
func (e *loopEndpoint) Send(ctx context.Context, frame Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := frame.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()
	// Snapshot endpoints under bus lock to avoid holding while sending.
	e.bus.mu.RLock()
	if e.bus.closed {
		e.bus.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*loopEndpoint, 0, len(e.bus.endpoints))
	for ep := range e.bus.endpoints {
		if ep != e {
			targets = append(targets, ep)
		}
	}
	e.bus.mu.RUnlock()

	for _, t := range targets {
		select {
		case t.ch <- frame:
		case <-t.closed:
		default:
			e.bus.overruns.Add(1)
		}
	}
	return nil
}

// Receive waits for the next frame. Frames queued before Close are dropped.
func (e *loopEndpoint) Receive(ctx context.Context) (Frame, error) {
	select {
	case <-e.closed:
		return Frame{}, ErrClosed
	default:
	}
	select {
	case f := <-e.ch:
		return f, nil
	case <-e.closed:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close detaches endpoint from bus.
func (e *loopEndpoint) Close() error {
	e.bus.mu.Lock()
	e.closeNoLock()
	e.bus.mu.Unlock()
	return nil
}

func (e *loopEndpoint) closeNoLock() {
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return
	}
	e.dead = true
	close(e.closed)
	if e.bus.endpoints != nil {
		delete(e.bus.endpoints, e)
	}
	e.mu.Unlock()
}
