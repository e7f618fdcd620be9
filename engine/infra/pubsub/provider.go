package pubsub

import "context"

// Message represents a payload delivered via a pub/sub subscription.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription exposes a stream of messages and allows callers to observe
// termination state. Close must be safe to call multiple times.
//
// Messages is closed when the subscription terminates for any reason; Err
// reports the terminal cause, nil when the subscription was closed locally.
type Subscription interface {
	Messages() <-chan Message
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Provider describes a component capable of subscribing to named topics and
// delivering messages published to them. Subscribe blocks until the transport
// acknowledges the subscription or ctx expires; the returned subscription's
// lifetime is independent of ctx.
type Provider interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Publish(ctx context.Context, topic string, payload []byte) error
}
