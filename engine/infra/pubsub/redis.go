package pubsub

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrSubscriptionLost indicates the transport dropped an established
// subscription without a local Close.
var ErrSubscriptionLost = errors.New("pubsub: subscription lost")

// defaultQueueSize buffers inbound messages per subscription so a slow
// handler does not immediately back-pressure the transport reader.
const defaultQueueSize = 64

// RedisProvider implements the Provider interface using Redis Pub/Sub.
type RedisProvider struct {
	client    redis.UniversalClient
	queueSize int
}

// ProviderOption customizes a RedisProvider.
type ProviderOption func(*RedisProvider)

// WithQueueSize sets the per-subscription delivery buffer size.
func WithQueueSize(n int) ProviderOption {
	return func(p *RedisProvider) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// NewRedisProvider constructs a Provider backed by a Redis client.
func NewRedisProvider(client redis.UniversalClient, opts ...ProviderOption) (*RedisProvider, error) {
	if client == nil {
		return nil, errors.New("pubsub: redis client is nil")
	}
	p := &RedisProvider{client: client, queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish sends payload to every subscriber of topic.
func (p *RedisProvider) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a Redis subscription on topic. The passed context bounds
// only the subscribe acknowledgment; the pump runs until Close or a
// transport failure.
func (p *RedisProvider) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pubsub := p.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	pumpCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		pubsub: pubsub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	out := make(chan Message, p.queueSize)
	sub.messages = out
	go sub.pump(pumpCtx, out, pubsub.Channel())
	return sub, nil
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	messages <-chan Message
	done     chan struct{}

	once sync.Once

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *redisSubscription) pump(ctx context.Context, out chan<- Message, in <-chan *redis.Message) {
	defer close(s.done)
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				s.mu.Lock()
				if !s.closed {
					s.err = ErrSubscriptionLost
				}
				s.mu.Unlock()
				return
			}
			if msg == nil {
				continue
			}
			copied := make([]byte, len(msg.Payload))
			copy(copied, msg.Payload)
			select {
			case out <- Message{Topic: msg.Channel, Payload: copied}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.messages
}

func (s *redisSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *redisSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}
