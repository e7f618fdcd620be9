package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazoapp/lazo/engine/infra/postgres"
	"github.com/lazoapp/lazo/pkg/logger"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := setupContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			dsn := cfg.Database.ConnString
			if dsn == "" {
				dsn = fmt.Sprintf(
					"postgres://%s:%s@%s:%s/%s?sslmode=%s",
					cfg.Database.User,
					cfg.Database.Password,
					cfg.Database.Host,
					cfg.Database.Port,
					cfg.Database.DBName,
					cfg.Database.SSLMode,
				)
			}
			if err := postgres.ApplyMigrationsWithLock(ctx, dsn); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			logger.FromContext(ctx).Info("migrations applied")
			return nil
		},
	}
}
