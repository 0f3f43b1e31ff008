package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/evtelemetry/bmsbridge/bridge"
)

// gatedPublisher blocks every publish until gate is closed.
type gatedPublisher struct {
	gate chan struct{}
	err  error

	mu  sync.Mutex
	got []string
}

func (p *gatedPublisher) Publish(_ context.Context, topic, payload string) error {
	<-p.gate
	p.mu.Lock()
	p.got = append(p.got, topic+" "+payload)
	p.mu.Unlock()
	return p.err
}

func (p *gatedPublisher) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.got...)
}

func TestQueue_ForwardsInOrder(t *testing.T) {
	inner := &gatedPublisher{gate: make(chan struct{})}
	close(inner.gate)
	q := NewQueue(inner, 8, nil)

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(context.Background(), "mcu", p))
	}
	require.NoError(t, q.Close())
	assert.Equal(t, []string{"mcu a", "mcu b", "mcu c"}, inner.messages())
}

func TestQueue_DropsOldestWhenFull(t *testing.T) {
	inner := &gatedPublisher{gate: make(chan struct{})}
	core, logs := observer.New(zapcore.WarnLevel)
	var drops int
	q := NewQueue(inner, 2, zap.New(core), WithDropHook(func() { drops++ }))

	// The worker takes "1" and blocks on the gate.
	require.NoError(t, q.Publish(context.Background(), "t", "1"))
	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)

	for _, p := range []string{"2", "3", "4", "5"} {
		require.NoError(t, q.Publish(context.Background(), "t", p))
	}
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())
	assert.Equal(t, 2, drops)
	assert.Equal(t, 2, logs.FilterMessage("publish queue full, dropping oldest").Len())

	close(inner.gate)
	require.NoError(t, q.Close())
	assert.Equal(t, []string{"t 1", "t 4", "t 5"}, inner.messages())
}

func TestQueue_PublishAfterClose(t *testing.T) {
	inner := &gatedPublisher{gate: make(chan struct{})}
	close(inner.gate)
	q := NewQueue(inner, 1, nil)
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish(context.Background(), "t", "x"), ErrQueueClosed)
	require.NoError(t, q.Close())
}

func TestQueue_ForwardErrorsAreReported(t *testing.T) {
	boom := errors.New("broker down")
	inner := &gatedPublisher{gate: make(chan struct{}), err: boom}
	close(inner.gate)

	var mu sync.Mutex
	var errs []error
	q := NewQueue(inner, 4, nil, WithForwardHook(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}))
	require.NoError(t, q.Publish(context.Background(), "t", "x"))
	require.NoError(t, q.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestQueue_WrapsLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var pub bridge.Publisher = NewQueue(NewLog(zap.New(core)), 4, nil)

	require.NoError(t, pub.Publish(context.Background(), "mcu", "power,system=pack soc=80"))
	require.NoError(t, pub.(*Queue).Close())

	entries := logs.FilterMessage("publish").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mcu", entries[0].ContextMap()["topic"])
	assert.Equal(t, "power,system=pack soc=80", entries[0].ContextMap()["payload"])
}

// stalledPublisher blocks every publish until its context ends.
type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestQueue_CloseGivesUpAtDrainTimeout(t *testing.T) {
	var drops, forwards atomic.Int64
	q := NewQueue(stalledPublisher{}, 32, nil,
		WithDrainTimeout(50*time.Millisecond),
		WithDropHook(func() { drops.Add(1) }),
		WithForwardHook(func(err error) {
			assert.ErrorIs(t, err, context.Canceled)
			forwards.Add(1)
		}),
	)
	for i := 0; i < 20; i++ {
		require.NoError(t, q.Publish(context.Background(), "mcu", "x"))
	}

	start := time.Now()
	err := q.Close()
	assert.Less(t, time.Since(start), time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, int64(20), drops.Load()+forwards.Load())
	assert.Positive(t, drops.Load())
	assert.Equal(t, uint64(drops.Load()), q.Dropped())
	assert.Zero(t, q.Len())
}

func TestQueue_CloseOverUnreachableBroker(t *testing.T) {
	refused := errors.New("connection refused")
	c := &fakeClient{connectErrs: []error{refused, refused, refused, refused}}
	opts := DefaultMQTTOptions()
	m := newMQTT(c, opts, zaptest.NewLogger(t))

	q := NewQueue(m, 256, zaptest.NewLogger(t), WithDrainTimeout(100*time.Millisecond))
	for i := 0; i < 20; i++ {
		require.NoError(t, q.Publish(context.Background(), "mcu", "x"))
	}

	start := time.Now()
	err := q.Close()
	assert.Less(t, time.Since(start), opts.ReconnectDelay)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, c.published)
}

func TestQueue_ShutdownWithoutDeadline(t *testing.T) {
	inner := &gatedPublisher{gate: make(chan struct{})}
	close(inner.gate)
	q := NewQueue(inner, 4, nil, WithDrainTimeout(0))
	require.NoError(t, q.Publish(context.Background(), "t", "a"))
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, []string{"t a"}, inner.messages())
	assert.Zero(t, q.Dropped())
}
