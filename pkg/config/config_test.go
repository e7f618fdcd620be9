package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Run("Should load defaults when no environment is set", func(t *testing.T) {
		cfg, err := NewLoader().Load(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
		assert.Equal(t, "notifications", cfg.Notify.TopicPrefix)
		assert.Equal(t, 60*time.Second, cfg.Notify.AckTimeout)
		assert.Equal(t, 2*time.Second, cfg.Notify.BackoffBase)
		assert.Equal(t, 30*time.Second, cfg.Notify.BackoffCap)
		assert.Equal(t, 0, cfg.Notify.MaxAttempts)
		assert.Equal(t, 100, cfg.Notify.HistoryLimit)
	})

	t.Run("Should override defaults from environment variables", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "redis.internal:6380")
		t.Setenv("NOTIFY_BACKOFF_CAP", "45s")
		t.Setenv("NOTIFY_HISTORY_LIMIT", "25")
		t.Setenv("RUNTIME_LOG_LEVEL", "debug")

		cfg, err := NewLoader().Load(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
		assert.Equal(t, 45*time.Second, cfg.Notify.BackoffCap)
		assert.Equal(t, 25, cfg.Notify.HistoryLimit)
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
	})

	t.Run("Should reject invalid log level", func(t *testing.T) {
		t.Setenv("RUNTIME_LOG_LEVEL", "loud")

		_, err := NewLoader().Load(t.Context())

		assert.Error(t, err)
	})

	t.Run("Should reject backoff cap below base", func(t *testing.T) {
		t.Setenv("NOTIFY_BACKOFF_CAP", "1s")

		_, err := NewLoader().Load(t.Context())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "backoff cap")
	})

	t.Run("Should accept a full conn string without discrete fields", func(t *testing.T) {
		t.Setenv("DB_CONN_STRING", "postgres://lazo:secret@db:5432/lazo")
		t.Setenv("DB_HOST", "")

		cfg, err := NewLoader().Load(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "postgres://lazo:secret@db:5432/lazo", cfg.Database.ConnString)
	})
}

func TestGenerateEnvMappings(t *testing.T) {
	t.Run("Should map nested struct env tags to config paths", func(t *testing.T) {
		mappings := GenerateEnvMappings()

		byEnv := make(map[string]string, len(mappings))
		for _, m := range mappings {
			byEnv[m.EnvVar] = m.ConfigPath
		}
		assert.Equal(t, "redis.addr", byEnv["REDIS_ADDR"])
		assert.Equal(t, "notify.ack_timeout", byEnv["NOTIFY_ACK_TIMEOUT"])
		assert.Equal(t, "database.conn_string", byEnv["DB_CONN_STRING"])
	})
}
