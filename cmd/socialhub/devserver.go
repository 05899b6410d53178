package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/socialhub-client/internal/devserver"
	"github.com/vovakirdan/socialhub-client/internal/log"
)

func devserverCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a simulated socialhub backend for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := flags.logLevel
			if level == "" {
				level = "info"
			}
			logger := log.New(level)

			server := &http.Server{
				Addr:              addr,
				Handler:           devserver.New(logger).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serverErr := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Msg("devserver listening")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serverErr <- err
					return
				}
				serverErr <- nil
			}()

			select {
			case err := <-serverErr:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				logger.Info().Msg("shutting down devserver")
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
				return <-serverErr
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}
