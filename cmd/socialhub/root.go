package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/socialhub-client/internal/config"
	"github.com/vovakirdan/socialhub-client/internal/log"
)

type rootFlags struct {
	configPath string
	serverURL  string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "socialhub",
		Short: "Realtime client for the socialhub social network",
		Long: "socialhub connects to the socialhub backend over a single WebSocket,\n" +
			"tracks unread message and notification counters, and offers chat modes\n" +
			"for direct threads and the public room.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&flags.serverURL, "server", "", "server origin, e.g. http://localhost:8080")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		connectCmd(flags),
		chatCmd(flags),
		publicCmd(flags),
		unreadCmd(flags),
		devserverCmd(flags),
	)

	return cmd
}

// loadConfig resolves configuration with CLI flags taking highest precedence.
func loadConfig(flags *rootFlags) (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")

	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	cfg.UpdateFrom(config.Config{
		ServerURL: flags.serverURL,
		LogLevel:  flags.logLevel,
	})

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config", path).Str("server", cfg.ServerURL).Msg("configuration resolved")

	return cfg, logger, nil
}
