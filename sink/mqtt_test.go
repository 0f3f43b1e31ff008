package sink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeToken completes immediately with err, or never when pending is set.
type fakeToken struct {
	err     error
	pending bool
	done    chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func pendingToken() *fakeToken {
	return &fakeToken{pending: true, done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

type fakeClient struct {
	mu          sync.Mutex
	connected   bool
	connectErrs []error
	connects    int
	publishTok  mqtt.Token
	published   []published
	disconnects int
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	var err error
	if len(c.connectErrs) > 0 {
		err = c.connectErrs[0]
		c.connectErrs = c.connectErrs[1:]
	}
	c.connected = err == nil
	return newToken(err)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload})
	if c.publishTok != nil {
		return c.publishTok
	}
	return newToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.connected = false
}

func testMQTTOptions() MQTTOptions {
	opts := DefaultMQTTOptions()
	opts.ReconnectDelay = time.Millisecond
	opts.PublishTimeout = 50 * time.Millisecond
	return opts
}

func TestMQTT_PublishQoS1NotRetained(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newMQTT(c, testMQTTOptions(), zaptest.NewLogger(t))

	require.NoError(t, m.Publish(context.Background(), "mcu", "power,system=pack pack_voltage=10"))
	require.Len(t, c.published, 1)
	assert.Equal(t, published{"mcu", 1, false, "power,system=pack pack_voltage=10"}, c.published[0])
	assert.Zero(t, c.connects)
}

func TestMQTT_ReconnectsBeforePublish(t *testing.T) {
	refused := errors.New("connection refused")
	c := &fakeClient{connectErrs: []error{refused, refused}}
	m := newMQTT(c, testMQTTOptions(), zaptest.NewLogger(t))

	require.NoError(t, m.Publish(context.Background(), "mcu", "x"))
	assert.Equal(t, 3, c.connects)
	assert.Len(t, c.published, 1)
}

func TestMQTT_GivesUpAfterMaxReconnect(t *testing.T) {
	refused := errors.New("connection refused")
	c := &fakeClient{connectErrs: []error{refused, refused, refused, refused}}
	m := newMQTT(c, testMQTTOptions(), zaptest.NewLogger(t))

	err := m.Publish(context.Background(), "mcu", "x")
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, c.connects)
	assert.Empty(t, c.published)
}

func TestMQTT_PublishTimeout(t *testing.T) {
	c := &fakeClient{connected: true, publishTok: pendingToken()}
	m := newMQTT(c, testMQTTOptions(), zaptest.NewLogger(t))

	err := m.Publish(context.Background(), "mcu", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestMQTT_PublishHonoursContext(t *testing.T) {
	c := &fakeClient{connected: true, publishTok: pendingToken()}
	opts := testMQTTOptions()
	opts.PublishTimeout = 0
	m := newMQTT(c, opts, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Publish(ctx, "mcu", "x"), context.DeadlineExceeded)
}

func TestMQTT_PublishError(t *testing.T) {
	c := &fakeClient{connected: true, publishTok: newToken(errors.New("not authorized"))}
	m := newMQTT(c, testMQTTOptions(), zaptest.NewLogger(t))

	err := m.Publish(context.Background(), "mcu", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt publish mcu")
}

func TestMQTT_Close(t *testing.T) {
	c := &fakeClient{connected: true}
	m := newMQTT(c, testMQTTOptions(), zaptest.NewLogger(t))
	require.NoError(t, m.Close())
	assert.Equal(t, 1, c.disconnects)
	require.NoError(t, m.Close())
	assert.Equal(t, 1, c.disconnects)
}

func TestMQTTOptions_ClientID(t *testing.T) {
	opts := DefaultMQTTOptions()
	assert.Equal(t, "can-mcu", opts.ClientIDFor())

	opts.UniqueID = true
	a, b := opts.ClientIDFor(), opts.ClientIDFor()
	assert.True(t, strings.HasPrefix(a, "can-mcu-"))
	assert.Len(t, a, len("can-mcu-")+8)
	assert.NotEqual(t, a, b)
}
