package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/socialhub-client/internal/app"
	"github.com/vovakirdan/socialhub-client/internal/unread"
)

func connectCmd(flags *rootFlags) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect and watch the unread badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			session, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			remove := session.Unread.OnChange(func(snap unread.Snapshot) {
				fmt.Printf("connected=%v messages=%d notifications=%d\n",
					snap.IsConnected, snap.UnreadMessages, snap.UnreadNotifications)
			})
			defer remove()

			session.Unread.Connect(userID)
			fmt.Printf("watching badges for user %d, Ctrl+C to exit\n", userID)

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "numeric user id of the session")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
