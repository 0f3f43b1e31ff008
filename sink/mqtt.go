package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evtelemetry/bmsbridge/bridge"
)

// QoS is the delivery level of every telemetry publish.
const QoS byte = 1

// ErrNotConnected is returned when the broker could not be reached within
// the configured reconnect attempts.
var ErrNotConnected = errors.New("sink: mqtt not connected")

// MQTTOptions configures an MQTT sink.
type MQTTOptions struct {
	Broker   string
	ClientID string
	// UniqueID appends a short random suffix to ClientID.
	UniqueID bool
	Username string
	Password string

	KeepAlive      time.Duration
	MaxReconnect   int
	ReconnectDelay time.Duration
	PublishTimeout time.Duration
}

// DefaultMQTTOptions returns the options of a local broker.
func DefaultMQTTOptions() MQTTOptions {
	return MQTTOptions{
		Broker:         "tcp://127.0.0.1:1883",
		ClientID:       "can-mcu",
		KeepAlive:      20 * time.Second,
		MaxReconnect:   3,
		ReconnectDelay: time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// ClientIDFor returns the client id the sink will present.
func (o MQTTOptions) ClientIDFor() string {
	if !o.UniqueID {
		return o.ClientID
	}
	return o.ClientID + "-" + uuid.NewString()[:8]
}

// mqttClient is the subset of mqtt.Client used by the sink.
type mqttClient interface {
	IsConnected() bool
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes payloads with QoS 1, not retained. Connection loss is
// handled lazily: a publish on a disconnected client first attempts a
// bounded number of reconnects.
type MQTT struct {
	client mqttClient
	opts   MQTTOptions
	logger *zap.Logger
}

var _ bridge.Publisher = (*MQTT)(nil)

// NewMQTT creates an MQTT sink. The connection is established on first
// publish.
func NewMQTT(opts MQTTOptions, logger *zap.Logger) *MQTT {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := opts.ClientIDFor()
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(id).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	logger.Info("mqtt sink", zap.String("broker", opts.Broker), zap.String("client_id", id))
	return newMQTT(mqtt.NewClient(co), opts, logger)
}

func newMQTT(c mqttClient, opts MQTTOptions, logger *zap.Logger) *MQTT {
	return &MQTT{client: c, opts: opts, logger: logger}
}

// Publish implements bridge.Publisher.
func (m *MQTT) Publish(ctx context.Context, topic, payload string) error {
	if err := m.ensureConnected(ctx); err != nil {
		return err
	}
	if err := m.await(ctx, m.client.Publish(topic, QoS, false, payload)); err != nil {
		return fmt.Errorf("sink: mqtt publish %s: %w", topic, err)
	}
	return nil
}

// Connect connects eagerly, with the same bounded retry as Publish.
func (m *MQTT) Connect(ctx context.Context) error {
	return m.ensureConnected(ctx)
}

// Close disconnects, allowing in-flight messages 250ms to complete.
func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	return nil
}

func (m *MQTT) ensureConnected(ctx context.Context) error {
	if m.client.IsConnected() {
		return nil
	}
	attempts := m.opts.MaxReconnect
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 && m.opts.ReconnectDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.opts.ReconnectDelay):
			}
		}
		last = m.await(ctx, m.client.Connect())
		if last == nil {
			m.logger.Info("mqtt connected", zap.String("broker", m.opts.Broker), zap.Int("attempt", i+1))
			return nil
		}
		m.logger.Warn("mqtt connect failed", zap.Int("attempt", i+1), zap.Error(last))
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrNotConnected, attempts, last)
}

// await waits for t, bounded by ctx and PublishTimeout.
func (m *MQTT) await(ctx context.Context, t mqtt.Token) error {
	var timeout <-chan time.Time
	if m.opts.PublishTimeout > 0 {
		timer := time.NewTimer(m.opts.PublishTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("timed out after %s", m.opts.PublishTimeout)
	}
}
