package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lazoapp/lazo/engine/notify"
	"github.com/lazoapp/lazo/pkg/logger"
)

func ListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream realtime notifications for a receiver until interrupted",
		RunE:  runListen,
	}
	cmd.Flags().String("receiver", "", "Receiver id to listen for (empty subscribes to the broadcast topic)")
	cmd.Flags().Bool("chime", true, "Ring the terminal bell on every notification")
	return cmd
}

func runListen(cmd *cobra.Command, _ []string) error {
	ctx, err := setupContext(cmd)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	receiverID, err := cmd.Flags().GetString("receiver")
	if err != nil {
		return err
	}
	withChime, err := cmd.Flags().GetBool("chime")
	if err != nil {
		return err
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

	var chime notify.Chime = notify.NopChime{}
	if withChime {
		chime = notify.WriterChime{W: cmd.OutOrStdout()}
	}
	svc := notify.NewService(provider, repo, notifyOptions(cfg, chime))

	cleanup := svc.Subscribe(ctx, receiverID,
		func(n notify.Notification) {
			log.Info("notification received",
				"id", n.ID,
				"type", n.Type,
				"sender", n.Sender.Username,
				"created_at", n.CreatedAt,
			)
		},
		func(title, description string) {
			cmd.Printf("%s\n%s\n\n", title, description)
		},
	)
	defer cleanup()

	log.Info("listening for notifications",
		"topic", svc.Topic(receiverID),
		"redis", cfg.Redis.Addr,
	)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
	return nil
}
