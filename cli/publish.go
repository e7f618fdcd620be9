package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/lazoapp/lazo/engine/notify"
	"github.com/lazoapp/lazo/pkg/logger"
)

func PublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Insert a notification row and publish it to the change feed",
		RunE:  runPublish,
	}
	cmd.Flags().String("type", string(notify.TypeMessage), "Notification type")
	cmd.Flags().String("receiver", "", "Receiver id")
	cmd.Flags().String("sender", "", "Sender id (empty produces a system notification)")
	cmd.Flags().String("post", "", "Referenced post id")
	cmd.Flags().String("comment", "", "Referenced comment id")
	cmd.Flags().String("message", "", "Free-form message")
	cmd.Flags().Bool("persist", true, "Also insert the row into the notifications table")
	_ = cmd.MarkFlagRequired("receiver")
	return cmd
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx, err := setupContext(cmd)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx).With("correlation_id", ksuid.New().String())
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	row, err := rowFromFlags(cmd)
	if err != nil {
		return err
	}

	provider, closeProvider, err := setupProvider(cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	persist, err := cmd.Flags().GetBool("persist")
	if err != nil {
		return err
	}
	if persist {
		repo, closeRepo, err := setupRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRepo()
		if err := repo.InsertChangeRow(ctx, row); err != nil {
			return fmt.Errorf("failed to persist notification: %w", err)
		}
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	topic := cfg.Notify.TopicPrefix + ":user:" + row.ReceiverID
	if err := provider.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	log.Info("notification published", "id", row.ID, "topic", topic, "type", row.Type)
	return nil
}

func rowFromFlags(cmd *cobra.Command) (notify.ChangeRow, error) {
	row := notify.ChangeRow{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	typ, err := cmd.Flags().GetString("type")
	if err != nil {
		return row, err
	}
	row.Type = notify.NotificationType(typ)
	if row.ReceiverID, err = cmd.Flags().GetString("receiver"); err != nil {
		return row, err
	}
	row.SenderID = optionalFlag(cmd, "sender")
	row.PostID = optionalFlag(cmd, "post")
	row.CommentID = optionalFlag(cmd, "comment")
	row.Message = optionalFlag(cmd, "message")
	return row, nil
}

// optionalFlag maps an empty string flag to an absent reference.
func optionalFlag(cmd *cobra.Command, name string) *string {
	value, err := cmd.Flags().GetString(name)
	if err != nil || value == "" {
		return nil
	}
	return &value
}
