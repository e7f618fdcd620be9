package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazoapp/lazo/engine/notify"
)

func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored notification history for a receiver",
		RunE:  runHistory,
	}
	cmd.Flags().String("receiver", "", "Receiver id to load history for")
	cmd.Flags().Int("limit", 0, "Maximum number of notifications to load (0 uses the configured limit)")
	_ = cmd.MarkFlagRequired("receiver")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, err := setupContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	receiverID, err := cmd.Flags().GetString("receiver")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.Notify.HistoryLimit
	}

	provider, closeProvider, err := setupProvider(cfg)
	if err != nil {
		return err
	}
	defer closeProvider()
	repo, closeRepo, err := setupRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc := notify.NewService(provider, repo, notifyOptions(cfg, notify.NopChime{}))
	notifications, err := svc.LoadHistory(ctx, receiverID, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	out, err := json.MarshalIndent(notifications, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
