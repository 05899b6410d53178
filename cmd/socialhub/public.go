package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/socialhub-client/internal/app"
	"github.com/vovakirdan/socialhub-client/internal/proto"
	"github.com/vovakirdan/socialhub-client/internal/store"
	"github.com/vovakirdan/socialhub-client/internal/unread"
)

func publicCmd(flags *rootFlags) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "public",
		Short: "Join the public chat room",
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

			printRecent(ctx, session, store.PublicRoomKey)

			unsubChat := session.Manager.SubscribeType(proto.TypePublicChat, func(env proto.Envelope) {
				var p proto.PublicChatPayload
				if err := json.Unmarshal(env.Payload, &p); err != nil || p.User == nil {
					return
				}
				fmt.Printf("%s: %s\n", p.User.Username, p.Content)
				saveLine(ctx, session, store.ChatLine{
					Conversation: store.PublicRoomKey,
					SenderID:     p.User.ID,
					SenderName:   p.User.Username,
					Body:         p.Content,
				})
			})
			defer unsubChat()

			unsubJoin := session.Manager.SubscribeType(proto.TypePublicChatJoin, func(env proto.Envelope) {
				var p proto.PublicChatJoinPayload
				if err := json.Unmarshal(env.Payload, &p); err != nil || p.User == nil {
					return
				}
				fmt.Printf("* %s joined\n", p.User.Username)
			})
			defer unsubJoin()

			// announce presence once the transport is actually open (and again
			// after every reconnect)
			var wasConnected bool
			removeWatch := session.Unread.OnChange(func(snap unread.Snapshot) {
				if snap.IsConnected && !wasConnected {
					session.Manager.SendPublicChatJoin(userID)
				}
				wasConnected = snap.IsConnected
			})
			defer removeWatch()

			session.Unread.Connect(userID)
			fmt.Println("joining the public room. Type messages and press Enter; Ctrl+C to exit.")

			for line := range stdinLines(ctx) {
				if strings.TrimSpace(line) == "" {
					continue
				}
				if !session.Manager.SendPublicChat(userID, line) {
					fmt.Println("(not connected, message not sent)")
					continue
				}
				saveLine(ctx, session, store.ChatLine{
					Conversation: store.PublicRoomKey,
					SenderID:     userID,
					Body:         line,
				})
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "numeric user id of the session")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
