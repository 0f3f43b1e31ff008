package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sink names accepted by publish.sink.
const (
	SinkMQTT  = "mqtt"
	SinkRedis = "redis"
	SinkLog   = "log"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Bus.Interface == "" {
		errs = append(errs, errors.New("bus.interface must not be empty"))
	}
	if c.Scheduler.Fast <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.fast must be > 0, got %s", c.Scheduler.Fast))
	}
	if c.Scheduler.Slow <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.slow must be > 0, got %s", c.Scheduler.Slow))
	}
	if c.Scheduler.Spacing < 0 {
		errs = append(errs, fmt.Errorf("scheduler.spacing must be >= 0, got %s", c.Scheduler.Spacing))
	}
	if c.Receive.Backoff < 0 {
		errs = append(errs, fmt.Errorf("receive.backoff must be >= 0, got %s", c.Receive.Backoff))
	}
	switch c.Publish.Sink {
	case SinkMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker must not be empty"))
		}
		if c.MQTT.ClientID == "" {
			errs = append(errs, errors.New("mqtt.client_id must not be empty"))
		}
	case SinkRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr must not be empty"))
		}
	case SinkLog:
	default:
		errs = append(errs, fmt.Errorf("publish.sink must be one of %s, %s, %s; got %q", SinkMQTT, SinkRedis, SinkLog, c.Publish.Sink))
	}
	if c.Publish.Topic == "" {
		errs = append(errs, errors.New("publish.topic must not be empty"))
	}
	if c.Publish.Live && c.Publish.LivePrefix == "" {
		errs = append(errs, errors.New("publish.live_prefix must not be empty when publish.live is set"))
	}
	if c.Publish.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("publish.queue_size must be >= 0, got %d", c.Publish.QueueSize))
	}
	if c.Publish.DrainTimeout < 0 {
		errs = append(errs, fmt.Errorf("publish.drain_timeout must be >= 0, got %s", c.Publish.DrainTimeout))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
