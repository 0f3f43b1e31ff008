// Package config loads the bridge configuration from a YAML file, defaults
// and BMSBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BMSBRIDGE_BUS_INTERFACE.
const EnvPrefix = "BMSBRIDGE"

// BusConfig selects and prepares the CAN interface.
type BusConfig struct {
	Interface string `mapstructure:"interface" yaml:"interface"`
	LogFrames bool   `mapstructure:"log_frames" yaml:"log_frames"`
	BringUp   bool   `mapstructure:"bring_up" yaml:"bring_up"`
	Bitrate   uint32 `mapstructure:"bitrate" yaml:"bitrate"`
	RestartMs uint32 `mapstructure:"restart_ms" yaml:"restart_ms"`
}

// SchedulerConfig holds the request cadences.
type SchedulerConfig struct {
	Fast    time.Duration `mapstructure:"fast" yaml:"fast"`
	Slow    time.Duration `mapstructure:"slow" yaml:"slow"`
	Spacing time.Duration `mapstructure:"spacing" yaml:"spacing"`
}

// ReceiveConfig tunes the receive loop.
type ReceiveConfig struct {
	Backoff time.Duration `mapstructure:"backoff" yaml:"backoff"`
}

// PublishConfig selects the sink and topics.
type PublishConfig struct {
	Sink       string `mapstructure:"sink" yaml:"sink"`
	Topic      string `mapstructure:"topic" yaml:"topic"`
	Live       bool   `mapstructure:"live" yaml:"live"`
	LivePrefix string `mapstructure:"live_prefix" yaml:"live_prefix"`
	// QueueSize bounds the publish queue; 0 publishes synchronously.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
	// DrainTimeout bounds how long queued messages are forwarded on shutdown.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`
}

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker" yaml:"broker"`
	ClientID       string        `mapstructure:"client_id" yaml:"client_id"`
	UniqueID       bool          `mapstructure:"unique_id" yaml:"unique_id"`
	Username       string        `mapstructure:"username" yaml:"username"`
	Password       string        `mapstructure:"password" yaml:"password"`
	KeepAlive      time.Duration `mapstructure:"keep_alive" yaml:"keep_alive"`
	MaxReconnect   int           `mapstructure:"max_reconnect" yaml:"max_reconnect"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
}

// RedisConfig configures the Redis sink.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LumberjackConfig configures the rolling log file.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig configures level, encoding and file output.
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// HTTPConfig configures the health and metrics listener.
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable" yaml:"enable"`
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the top-level configuration.
type Config struct {
	Bus       BusConfig       `mapstructure:"bus" yaml:"bus"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Receive   ReceiveConfig   `mapstructure:"receive" yaml:"receive"`
	Publish   PublishConfig   `mapstructure:"publish" yaml:"publish"`
	MQTT      MQTTConfig      `mapstructure:"mqtt" yaml:"mqtt"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// Load reads configuration from path. If path is empty, BMSBRIDGE_CONFIG is
// consulted, then bmsbridge.yaml in . and ./configs. A missing default file
// is not an error; the defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("bmsbridge")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bus.interface", "can0")
	v.SetDefault("bus.log_frames", false)
	v.SetDefault("bus.bring_up", false)
	v.SetDefault("bus.bitrate", 250000)
	v.SetDefault("bus.restart_ms", 100)

	v.SetDefault("scheduler.fast", "100ms")
	v.SetDefault("scheduler.slow", "1s")
	v.SetDefault("scheduler.spacing", "5ms")

	v.SetDefault("receive.backoff", "10ms")

	v.SetDefault("publish.sink", SinkMQTT)
	v.SetDefault("publish.topic", "mcu")
	v.SetDefault("publish.live", false)
	v.SetDefault("publish.live_prefix", "live/mcu")
	v.SetDefault("publish.queue_size", 256)
	v.SetDefault("publish.drain_timeout", "5s")

	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.client_id", "can-mcu")
	v.SetDefault("mqtt.unique_id", false)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.keep_alive", "20s")
	v.SetDefault("mqtt.max_reconnect", 3)
	v.SetDefault("mqtt.reconnect_delay", "1s")
	v.SetDefault("mqtt.publish_timeout", "5s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 7)
	v.SetDefault("logging.file.max_age", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("http.enable", true)
	v.SetDefault("http.addr", ":9102")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")

	v.SetDefault("metrics.path", "/metrics")
}
