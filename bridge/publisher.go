package bridge

import "context"

// Publisher delivers one textual payload to a topic. Connection management,
// reconnects and queueing belong to the implementation; the bridge logs a
// failed Publish and moves on.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic, payload string) error

func (f PublisherFunc) Publish(ctx context.Context, topic, payload string) error {
	return f(ctx, topic, payload)
}
