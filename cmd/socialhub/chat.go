package main

import (
	"bufio"
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
)

func chatCmd(flags *rootFlags) *cobra.Command {
	var (
		userID int64
		peerID int64
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open a direct chat thread with one peer",
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

			conversation := store.DirectKey(userID, peerID)
			printRecent(ctx, session, conversation)

			// thread-scoped observer: only message frames from this peer
			unsubscribe := session.Manager.Subscribe(func(env proto.Envelope) bool {
				if env.Type != proto.TypeMessage {
					return false
				}
				var p proto.MessagePayload
				if err := json.Unmarshal(env.Payload, &p); err != nil {
					return false
				}
				return p.SenderID == peerID
			}, func(env proto.Envelope) {
				var p proto.MessagePayload
				if err := json.Unmarshal(env.Payload, &p); err != nil {
					return
				}
				fmt.Printf("[peer %d] %s\n", p.SenderID, p.Content)
				saveLine(ctx, session, store.ChatLine{
					Conversation: conversation,
					SenderID:     p.SenderID,
					Body:         p.Content,
				})
			})
			defer unsubscribe()

			session.Unread.Connect(userID)
			fmt.Printf("chatting with user %d. Type messages and press Enter; Ctrl+C to exit.\n", peerID)

			for line := range stdinLines(ctx) {
				if strings.TrimSpace(line) == "" {
					continue
				}
				if !session.Manager.SendDirectMessage(userID, peerID, line) {
					fmt.Println("(not connected, message not sent)")
					continue
				}
				saveLine(ctx, session, store.ChatLine{
					Conversation: conversation,
					SenderID:     userID,
					Body:         line,
				})
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "numeric user id of the session")
	cmd.Flags().Int64Var(&peerID, "peer", 0, "numeric user id of the chat peer")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("peer")

	return cmd
}

func printRecent(ctx context.Context, session *app.App, conversation string) {
	lines, err := session.History.RecentLines(ctx, conversation, 20)
	if err != nil {
		session.Log.Warn().Err(err).Msg("failed to load history")
		return
	}
	for _, line := range lines {
		fmt.Printf("[%s] %d: %s\n", line.CreatedAt.Format("15:04"), line.SenderID, line.Body)
	}
}

func saveLine(ctx context.Context, session *app.App, line store.ChatLine) {
	if _, err := session.History.SaveLine(ctx, line); err != nil {
		session.Log.Warn().Err(err).Msg("failed to save chat line")
	}
}

// stdinLines feeds stdin lines to a channel closed on EOF or ctx cancellation.
func stdinLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
