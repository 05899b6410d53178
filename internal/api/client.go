// Package api is the small REST surface the realtime client uses as a
// fallback: unread counters can be polled over request/response and
// reconciled with the push channel.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/socialhub-client/internal/unread"
)

// ErrNotFound reports an unknown user.
var ErrNotFound = errors.New("user not found")

// UnreadCounts is the REST representation of the unread counters.
type UnreadCounts struct {
	UnreadMessages      int `json:"unreadMessages"`
	UnreadNotifications int `json:"unreadNotifications"`
}

// Client talks to the socialhub REST API.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// New builds a client for the given base URL (scheme://host, no trailing slash).
func New(base string, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  logger.With().Str("component", "api").Logger(),
	}
}

// GetUnread fetches the server-side unread counters for userID.
func (c *Client) GetUnread(ctx context.Context, userID int64) (UnreadCounts, error) {
	url := fmt.Sprintf("%s/api/users/%d/unread", c.base, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return UnreadCounts{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return UnreadCounts{}, fmt.Errorf("get unread: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return UnreadCounts{}, ErrNotFound
	default:
		return UnreadCounts{}, fmt.Errorf("get unread: unexpected status %d", resp.StatusCode)
	}

	var counts UnreadCounts
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return UnreadCounts{}, fmt.Errorf("decode unread: %w", err)
	}
	return counts, nil
}

// SyncUnread polls the REST counters and overwrites the store. Both the push
// channel and this path carry the same server truth at different times, so a
// plain last-write-wins set is enough.
func (c *Client) SyncUnread(ctx context.Context, userID int64, store *unread.Store) error {
	counts, err := c.GetUnread(ctx, userID)
	if err != nil {
		return err
	}
	store.SetMessageCount(counts.UnreadMessages)
	store.SetNotificationCount(counts.UnreadNotifications)
	c.log.Debug().
		Int("unread_messages", counts.UnreadMessages).
		Int("unread_notifications", counts.UnreadNotifications).
		Msg("unread counters synced from rest")
	return nil
}
