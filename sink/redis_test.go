package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	channel string
	message interface{}
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel, f.message = channel, message
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedis_Publish(t *testing.T) {
	f := &fakeRedis{}
	r := &Redis{client: f}

	require.NoError(t, r.Publish(context.Background(), "mcu", "power,system=pack soc=80"))
	assert.Equal(t, "mcu", f.channel)
	assert.Equal(t, "power,system=pack soc=80", f.message)
	assert.NoError(t, r.Close())
}

func TestRedis_PublishError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &Redis{client: &fakeRedis{err: boom}}

	err := r.Publish(context.Background(), "mcu", "x")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "redis publish mcu")
}
