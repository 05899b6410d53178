package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds client configuration values.
type Config struct {
	// ServerURL is the HTTP(S) origin of the socialhub backend. The realtime
	// endpoint is derived from it by upgrading the scheme and appending /ws.
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	DialTimeout          time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`

	// HistoryPath is the sqlite file for the local message cache.
	HistoryPath string `mapstructure:"history_path" yaml:"history_path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:            "http://localhost:8080",
		LogLevel:             "info",
		DialTimeout:          10 * time.Second,
		ReconnectDelay:       3 * time.Second,
		MaxReconnectAttempts: 5,
		HistoryPath:          "socialhub.db",
	}
}

// WebSocketURL derives the realtime endpoint from ServerURL: http becomes ws,
// https becomes wss, path is fixed to /ws.
func (c Config) WebSocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// APIBaseURL returns ServerURL without a trailing slash, for REST calls.
func (c Config) APIBaseURL() string {
	return strings.TrimRight(c.ServerURL, "/")
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.ReconnectDelay != 0 {
		c.ReconnectDelay = other.ReconnectDelay
	}
	if other.MaxReconnectAttempts != 0 {
		c.MaxReconnectAttempts = other.MaxReconnectAttempts
	}
	if other.HistoryPath != "" {
		c.HistoryPath = other.HistoryPath
	}
}
