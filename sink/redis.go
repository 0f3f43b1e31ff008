package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evtelemetry/bmsbridge/bridge"
)

// RedisOptions configures a Redis sink.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes each payload with PUBLISH on a channel named after the
// topic.
type Redis struct {
	client redisPublisher
	closer func() error
}

var _ bridge.Publisher = (*Redis)(nil)

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("sink: redis ping %s: %w", opts.Addr, err)
	}
	return &Redis{client: rdb, closer: rdb.Close}, nil
}

// Publish implements bridge.Publisher.
func (r *Redis) Publish(ctx context.Context, topic, payload string) error {
	if err := r.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("sink: redis publish %s: %w", topic, err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
