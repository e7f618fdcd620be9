package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/lazoapp/lazo/engine/infra/postgres"
	"github.com/lazoapp/lazo/engine/infra/pubsub"
	"github.com/lazoapp/lazo/engine/notify"
	"github.com/lazoapp/lazo/pkg/config"
	"github.com/lazoapp/lazo/pkg/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lazo",
		Short: "Lazo notification delivery pipeline",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return fmt.Errorf("failed to get env-file flag: %w", err)
			}
			if envFile != "" {
				// Missing file is fine; env vars may come from elsewhere.
				_ = godotenv.Load(envFile)
			}
			return nil
		},
	}
	root.PersistentFlags().String("env-file", ".env", "Environment file to load before reading configuration")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "Include source locations in logs")

	root.AddCommand(
		ListenCmd(),
		HistoryCmd(),
		PublishCmd(),
		MarkReadCmd(),
		MigrateCmd(),
	)
	return root
}

// setupContext builds the command context carrying a configured logger.
func setupContext(cmd *cobra.Command) (context.Context, error) {
	logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.SetupLogger(logLevel, logJSON, logSource)
	return logger.ContextWithLogger(cmd.Context(), log), nil
}

// loadConfig resolves the effective configuration from defaults and env.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.NewLoader().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupProvider connects the Redis change-feed transport.
func setupProvider(cfg *config.Config) (*pubsub.RedisProvider, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	provider, err := pubsub.NewRedisProvider(client, pubsub.WithQueueSize(cfg.Notify.DeliveryQueue))
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return provider, func() { client.Close() }, nil
}

// setupRepository opens the Postgres store and wraps it in the domain
// repository, optionally applying migrations first.
func setupRepository(ctx context.Context, cfg *config.Config) (*postgres.Repository, func(), error) {
	storeCfg := storeConfig(cfg)
	store, err := postgres.NewStore(ctx, storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return postgres.NewRepository(store.Pool()), func() { _ = store.Close(ctx) }, nil
}

func storeConfig(cfg *config.Config) *postgres.Config {
	return &postgres.Config{
		ConnString: cfg.Database.ConnString,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		DBName:     cfg.Database.DBName,
		SSLMode:    cfg.Database.SSLMode,
	}
}

func notifyOptions(cfg *config.Config, chime notify.Chime) *notify.Options {
	return &notify.Options{
		TopicPrefix: cfg.Notify.TopicPrefix,
		AckTimeout:  cfg.Notify.AckTimeout,
		BackoffBase: cfg.Notify.BackoffBase,
		BackoffCap:  cfg.Notify.BackoffCap,
		MaxAttempts: cfg.Notify.MaxAttempts,
		Chime:       chime,
	}
}
