// Package app wires the client layers together: configuration, logging, the
// connection manager, the shared unread store, the REST fallback client, and
// the local history cache.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/socialhub-client/internal/api"
	"github.com/vovakirdan/socialhub-client/internal/config"
	"github.com/vovakirdan/socialhub-client/internal/realtime"
	"github.com/vovakirdan/socialhub-client/internal/store"
	"github.com/vovakirdan/socialhub-client/internal/store/sqlite"
	"github.com/vovakirdan/socialhub-client/internal/unread"
)

// App is one client session's object graph.
type App struct {
	Cfg     config.Config
	Log     *zerolog.Logger
	Manager *realtime.Manager
	Unread  *unread.Store
	API     *api.Client
	History store.History
}

// New constructs the session from resolved configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return nil, fmt.Errorf("derive websocket url: %w", err)
	}

	manager := realtime.NewManager(realtime.Options{
		URL:                  wsURL,
		DialTimeout:          cfg.DialTimeout,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		Logger:               logger,
	})

	history, err := sqlite.New(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	return &App{
		Cfg:     cfg,
		Log:     logger,
		Manager: manager,
		Unread:  unread.New(manager, logger),
		API:     api.New(cfg.APIBaseURL(), logger),
		History: history,
	}, nil
}

// Close disconnects and releases resources.
func (a *App) Close() {
	a.Unread.Disconnect()
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("failed to close history")
		}
	}
}
