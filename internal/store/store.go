// Package store defines the local message history cache: chat lines the
// client observed over the realtime channel, kept so chat views can show
// recent context without a round trip.
package store

import (
	"context"
	"fmt"
	"time"
)

// PublicRoomKey is the conversation key for the public chat room.
const PublicRoomKey = "public"

// ChatLine is one observed chat message, direct or public.
type ChatLine struct {
	ID           int64
	Conversation string // DirectKey(...) or PublicRoomKey
	SenderID     int64
	SenderName   string
	Body         string
	CreatedAt    time.Time
}

// DirectKey returns the conversation key for a direct thread between two
// users: "dm:{minUserId}:{maxUserId}", so both sides derive the same key.
func DirectKey(a, b int64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// History is the persistence interface for the local cache.
type History interface {
	// SaveLine appends a chat line and returns its local id.
	SaveLine(ctx context.Context, line ChatLine) (int64, error)

	// RecentLines returns up to limit lines of a conversation, oldest first.
	RecentLines(ctx context.Context, conversation string, limit int) ([]ChatLine, error)

	// Close releases the underlying resources.
	Close() error
}
