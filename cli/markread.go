package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func MarkReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <notification-id>",
		Short: "Mark a stored notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := setupContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			repo, closeRepo, err := setupRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRepo()
			if err := repo.MarkRead(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to mark notification read: %w", err)
			}
			cmd.Printf("marked %s read\n", args[0])
			return nil
		},
	}
}
