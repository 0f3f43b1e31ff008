package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evtelemetry/bmsbridge/bridge"
)

// ErrQueueClosed is returned by Publish after Close.
var ErrQueueClosed = errors.New("sink: queue closed")

// DefaultDrainTimeout bounds how long Close forwards queued messages.
const DefaultDrainTimeout = 5 * time.Second

type message struct {
	topic   string
	payload string
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithDropHook registers fn to be called for every message dropped, either
// on overflow or when the drain deadline expires.
func WithDropHook(fn func()) QueueOption {
	return func(q *Queue) { q.onDrop = fn }
}

// WithForwardHook registers fn to be called with the result of every
// forwarded publish.
func WithForwardHook(fn func(error)) QueueOption {
	return func(q *Queue) { q.onForward = fn }
}

// WithDrainTimeout sets the deadline Close gives the worker to forward
// queued messages. Zero waits indefinitely.
func WithDrainTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.drainTimeout = d }
}

// Queue decouples callers from a slow inner Publisher. Publish never blocks:
// when the queue is full the oldest message is dropped. A single worker
// forwards messages in order.
type Queue struct {
	inner        bridge.Publisher
	logger       *zap.Logger
	size         int
	drainTimeout time.Duration

	mu     sync.Mutex
	buf    []message
	closed bool

	// ctx is the context of every forwarded publish; cancel aborts the
	// in-flight one once the drain deadline expires.
	ctx    context.Context
	cancel context.CancelFunc
	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}

	dropped   atomic.Uint64
	abandoned atomic.Uint64
	onDrop    func()
	onForward func(error)
}

var _ bridge.Publisher = (*Queue)(nil)

// NewQueue starts a queue of the given capacity in front of inner.
func NewQueue(inner bridge.Publisher, size int, logger *zap.Logger, opts ...QueueOption) *Queue {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		inner:        inner,
		logger:       logger,
		size:         size,
		drainTimeout: DefaultDrainTimeout,
		buf:          make([]message, 0, size),
		ctx:          ctx,
		cancel:       cancel,
		notify:       make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	go q.run()
	return q
}

// Publish enqueues the message. The context is not used by the forwarding
// worker, which publishes in the background.
func (q *Queue) Publish(_ context.Context, topic, payload string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	var drop *message
	if len(q.buf) == q.size {
		old := q.buf[0]
		drop = &old
		q.buf = append(q.buf[:0], q.buf[1:]...)
	}
	q.buf = append(q.buf, message{topic: topic, payload: payload})
	q.mu.Unlock()

	if drop != nil {
		n := q.countDrop()
		q.logger.Warn("publish queue full, dropping oldest",
			zap.String("topic", drop.topic), zap.Uint64("dropped_total", n))
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Dropped returns the number of messages dropped on overflow or at the
// drain deadline.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops accepting messages and forwards the queued ones, for at most
// the drain timeout.
func (q *Queue) Close() error {
	ctx := context.Background()
	if q.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.drainTimeout)
		defer cancel()
	}
	return q.Shutdown(ctx)
}

// Shutdown stops accepting messages and forwards the queued ones until ctx
// is done. Then the in-flight publish is aborted, the rest is dropped, and
// an error wrapping ctx.Err() is returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
	}
	q.cancel()
	<-q.done
	return fmt.Errorf("sink: queue drain: %w (%d messages dropped)", ctx.Err(), q.abandoned.Load())
}

func (q *Queue) countDrop() uint64 {
	n := q.dropped.Add(1)
	if q.onDrop != nil {
		q.onDrop()
	}
	return n
}

func (q *Queue) pop() (message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return message{}, false
	}
	m := q.buf[0]
	q.buf = append(q.buf[:0], q.buf[1:]...)
	return m, true
}

// abandon drops everything still queued after the worker context ended.
func (q *Queue) abandon() {
	q.mu.Lock()
	rest := q.buf
	q.buf = nil
	q.mu.Unlock()
	if len(rest) == 0 {
		return
	}
	for range rest {
		q.countDrop()
	}
	q.abandoned.Add(uint64(len(rest)))
	q.logger.Warn("publish queue closed with undelivered messages", zap.Int("dropped", len(rest)))
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		if q.ctx.Err() != nil {
			q.abandon()
			return
		}
		if m, ok := q.pop(); ok {
			q.forward(m)
			continue
		}
		select {
		case <-q.notify:
		case <-q.stop:
			for {
				if q.ctx.Err() != nil {
					q.abandon()
					return
				}
				m, ok := q.pop()
				if !ok {
					return
				}
				q.forward(m)
			}
		}
	}
}

func (q *Queue) forward(m message) {
	err := q.inner.Publish(q.ctx, m.topic, m.payload)
	if q.onForward != nil {
		q.onForward(err)
	}
	if err != nil {
		q.logger.Warn("publish failed", zap.String("topic", m.topic), zap.Error(err))
	}
}
