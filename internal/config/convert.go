package config

import (
	"gopkg.in/yaml.v3"

	"github.com/evtelemetry/bmsbridge/bms"
	"github.com/evtelemetry/bmsbridge/bridge"
	"github.com/evtelemetry/bmsbridge/sink"
)

// SchedulerConfig returns the request scheduler configuration with the
// compiled-in request tables.
func (c *Config) SchedulerConfig() bms.SchedulerConfig {
	sc := bms.DefaultSchedulerConfig()
	sc.Fast = c.Scheduler.Fast
	sc.Slow = c.Scheduler.Slow
	sc.Spacing = c.Scheduler.Spacing
	return sc
}

// BridgeConfig returns the runtime configuration.
func (c *Config) BridgeConfig() bridge.Config {
	return bridge.Config{
		Interface:      c.Bus.Interface,
		Scheduler:      c.SchedulerConfig(),
		Topic:          c.Publish.Topic,
		Live:           c.Publish.Live,
		LivePrefix:     c.Publish.LivePrefix,
		ReceiveBackoff: c.Receive.Backoff,
	}
}

// MQTTOptions returns the MQTT sink options.
func (c *Config) MQTTOptions() sink.MQTTOptions {
	return sink.MQTTOptions{
		Broker:         c.MQTT.Broker,
		ClientID:       c.MQTT.ClientID,
		UniqueID:       c.MQTT.UniqueID,
		Username:       c.MQTT.Username,
		Password:       c.MQTT.Password,
		KeepAlive:      c.MQTT.KeepAlive,
		MaxReconnect:   c.MQTT.MaxReconnect,
		ReconnectDelay: c.MQTT.ReconnectDelay,
		PublishTimeout: c.MQTT.PublishTimeout,
	}
}

// RedisOptions returns the Redis sink options.
func (c *Config) RedisOptions() sink.RedisOptions {
	return sink.RedisOptions{
		Addr:         c.Redis.Addr,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		DialTimeout:  c.Redis.DialTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
	}
}

// YAML renders the effective configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.MQTT.Password != "" {
		out.MQTT.Password = "********"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "********"
	}
	return yaml.Marshal(&out)
}
