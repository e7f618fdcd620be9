package pubsub

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *RedisProvider {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	provider, err := NewRedisProvider(client)
	require.NoError(t, err)
	return provider
}

func TestRedisProvider_Subscribe(t *testing.T) {
	t.Run("Should deliver published payloads in order", func(t *testing.T) {
		provider := newTestProvider(t)
		ctx := t.Context()

		sub, err := provider.Subscribe(ctx, "notifications:all")
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, provider.Publish(ctx, "notifications:all", []byte("one")))
		require.NoError(t, provider.Publish(ctx, "notifications:all", []byte("two")))

		first := receiveMessage(t, sub)
		second := receiveMessage(t, sub)
		assert.Equal(t, "one", string(first.Payload))
		assert.Equal(t, "two", string(second.Payload))
		assert.Equal(t, "notifications:all", first.Topic)
	})

	t.Run("Should not deliver messages for other topics", func(t *testing.T) {
		provider := newTestProvider(t)
		ctx := t.Context()

		sub, err := provider.Subscribe(ctx, "notifications:user:u1")
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, provider.Publish(ctx, "notifications:user:u2", []byte("elsewhere")))
		require.NoError(t, provider.Publish(ctx, "notifications:user:u1", []byte("mine")))

		msg := receiveMessage(t, sub)
		assert.Equal(t, "mine", string(msg.Payload))
	})

	t.Run("Should close message channel and report nil error on local close", func(t *testing.T) {
		provider := newTestProvider(t)

		sub, err := provider.Subscribe(t.Context(), "notifications:all")
		require.NoError(t, err)

		require.NoError(t, sub.Close())

		select {
		case <-sub.Done():
		case <-time.After(time.Second):
			t.Fatal("subscription did not terminate after Close")
		}
		assert.NoError(t, sub.Err())
	})

	t.Run("Should be safe to close twice", func(t *testing.T) {
		provider := newTestProvider(t)

		sub, err := provider.Subscribe(t.Context(), "notifications:all")
		require.NoError(t, err)

		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())
	})
}

func TestNewRedisProvider(t *testing.T) {
	t.Run("Should reject a nil client", func(t *testing.T) {
		_, err := NewRedisProvider(nil)
		assert.Error(t, err)
	})
	t.Run("Should apply a custom queue size", func(t *testing.T) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		provider, err := NewRedisProvider(client, WithQueueSize(8))
		require.NoError(t, err)
		assert.Equal(t, 8, provider.queueSize)
	})
	t.Run("Should ignore a non-positive queue size", func(t *testing.T) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		provider, err := NewRedisProvider(client, WithQueueSize(0))
		require.NoError(t, err)
		assert.Equal(t, defaultQueueSize, provider.queueSize)
	})
}

func receiveMessage(t *testing.T, sub Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "message channel closed unexpectedly")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}
