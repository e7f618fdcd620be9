package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lazoapp/lazo/engine/infra/pubsub"
	"github.com/lazoapp/lazo/pkg/logger"
)

// Status tracks one topic's connection state.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusSubscribed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusSubscribed:
		return "subscribed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	// ErrAckTimeout indicates the transport never acknowledged a subscribe
	// within the configured deadline.
	ErrAckTimeout = errors.New("notify: subscribe acknowledgment timed out")
	// ErrChannelRemoved indicates the channel was torn down while a
	// subscribe was still in flight.
	ErrChannelRemoved = errors.New("notify: channel removed")
)

// DefaultAckTimeout bounds how long a transport subscribe may stay
// unacknowledged.
const DefaultAckTimeout = 60 * time.Second

// SubscribeResult is an awaitable, single-resolution subscribe outcome.
// Multiple callers may await the same result.
type SubscribeResult struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newSubscribeResult() *SubscribeResult {
	return &SubscribeResult{done: make(chan struct{})}
}

func resolvedSubscribeResult(err error) *SubscribeResult {
	r := newSubscribeResult()
	r.resolve(err)
	return r
}

func (r *SubscribeResult) resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed once the subscribe attempt resolved either way.
func (r *SubscribeResult) Done() <-chan struct{} { return r.done }

// Await blocks until the subscribe attempt resolves or ctx expires.
func (r *SubscribeResult) Await(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RowHandler consumes one inbound transport message.
type RowHandler func(ctx context.Context, msg pubsub.Message)

// FailureHandler observes the terminal error of an established channel.
type FailureHandler func(topic string, err error)

// ChannelManager owns at most one live transport channel per topic. It
// deduplicates concurrent subscribes, enforces the acknowledgment deadline
// and guarantees a rejected subscribe releases its half-open channel before
// the rejection propagates. All channel handles stay inside the manager; no
// other component may create or close them.
type ChannelManager struct {
	provider   pubsub.Provider
	ackTimeout time.Duration

	mu       sync.Mutex
	channels map[string]*managedChannel
}

type managedChannel struct {
	topic   string
	status  Status
	sub     pubsub.Subscription
	pending *SubscribeResult
}

// NewChannelManager creates a manager over the given transport provider.
func NewChannelManager(provider pubsub.Provider, ackTimeout time.Duration) *ChannelManager {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &ChannelManager{
		provider:   provider,
		ackTimeout: ackTimeout,
		channels:   map[string]*managedChannel{},
	}
}

// GetOrCreateChannel returns an awaitable subscribe outcome for topic.
// An already-subscribed topic resolves immediately; an in-flight subscribe
// is coalesced so both callers observe the same resolution and only one
// transport subscribe is ever issued.
func (m *ChannelManager) GetOrCreateChannel(
	ctx context.Context,
	topic string,
	handler RowHandler,
	onFailure FailureHandler,
) *SubscribeResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[topic]; ok {
		if ch.status == StatusSubscribed {
			return resolvedSubscribeResult(nil)
		}
		if ch.pending != nil {
			return ch.pending
		}
	}
	ch := &managedChannel{
		topic:   topic,
		status:  StatusConnecting,
		pending: newSubscribeResult(),
	}
	m.channels[topic] = ch
	go m.establish(ctx, ch, handler, onFailure)
	return ch.pending
}

// establish performs the transport subscribe for a freshly created channel.
func (m *ChannelManager) establish(
	ctx context.Context,
	ch *managedChannel,
	handler RowHandler,
	onFailure FailureHandler,
) {
	ackCtx, cancel := context.WithTimeout(ctx, m.ackTimeout)
	defer cancel()
	sub, err := m.provider.Subscribe(ackCtx, ch.topic)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s", ErrAckTimeout, ch.topic)
		}
		m.mu.Lock()
		ch.status = StatusFailed
		pending := ch.pending
		ch.pending = nil
		m.mu.Unlock()
		// Release the half-open channel before the rejection propagates.
		m.RemoveChannel(ch.topic)
		if pending != nil {
			pending.resolve(err)
		}
		return
	}

	m.mu.Lock()
	if m.channels[ch.topic] != ch {
		// Removed while the subscribe was in flight.
		pending := ch.pending
		ch.pending = nil
		m.mu.Unlock()
		_ = sub.Close()
		if pending != nil {
			pending.resolve(ErrChannelRemoved)
		}
		return
	}
	ch.status = StatusSubscribed
	ch.sub = sub
	pending := ch.pending
	ch.pending = nil
	m.mu.Unlock()

	go m.pump(ch, sub, handler, onFailure)
	pending.resolve(nil)
}

// pump forwards inbound messages to the handler in delivery order and
// reports a transport failure, if any, once the subscription terminates.
func (m *ChannelManager) pump(
	ch *managedChannel,
	sub pubsub.Subscription,
	handler RowHandler,
	onFailure FailureHandler,
) {
	for msg := range sub.Messages() {
		handler(context.Background(), msg)
	}
	err := sub.Err()
	m.mu.Lock()
	if current, ok := m.channels[ch.topic]; ok && current == ch {
		ch.status = StatusFailed
	}
	m.mu.Unlock()
	if err != nil {
		logger.FromContext(context.Background()).Warn("channel terminated",
			"topic", ch.topic, "error", err)
		if onFailure != nil {
			onFailure(ch.topic, err)
		}
	}
}

// RemoveChannel releases the channel handle for topic if present and clears
// any pending subscribe. Safe to call when nothing is subscribed, and safe
// to call repeatedly.
func (m *ChannelManager) RemoveChannel(topic string) {
	m.mu.Lock()
	ch, ok := m.channels[topic]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.channels, topic)
	sub := ch.sub
	pending := ch.pending
	ch.pending = nil
	m.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
	if pending != nil {
		pending.resolve(ErrChannelRemoved)
	}
}

// Status reports the current connection state for topic.
func (m *ChannelManager) Status(topic string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[topic]; ok {
		return ch.status
	}
	return StatusIdle
}
