package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/socialhub-client/internal/api"
)

func unreadCmd(flags *rootFlags) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Fetch unread counters over REST (push-channel cross-check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client := api.New(cfg.APIBaseURL(), logger)
			counts, err := client.GetUnread(ctx, userID)
			if err != nil {
				return err
			}

			fmt.Printf("messages=%d notifications=%d\n", counts.UnreadMessages, counts.UnreadNotifications)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "numeric user id of the session")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
