package proto

import "encoding/json"

// Envelope is the unit of exchange over the realtime channel, in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client -> server types.
	TypeAuth           = "auth"
	TypeDirectMessage  = "direct_message"
	TypePublicChat     = "public_chat"
	TypePublicChatJoin = "public_chat_join"

	// Server -> client types.
	TypeInit         = "init"
	TypeNotification = "notification"
	TypeMessage      = "message"
	TypeFriendAdded  = "friend_added"
)

// Notification sub-types carried in NotificationPayload.Type.
const (
	NotificationFriendRequest         = "friend_request"
	NotificationFriendRequestAccepted = "friend_request_accepted"
)

// AuthPayload identifies the session; sent immediately after the transport opens.
type AuthPayload struct {
	UserID int64 `json:"userId"`
}

// InitPayload seeds the unread counters once per connection.
type InitPayload struct {
	UnreadMessages      int `json:"unreadMessages"`
	UnreadNotifications int `json:"unreadNotifications"`
}

// NotificationPayload is a generic notification event. Fields beyond Type are
// sub-type specific; SenderID and SenderName are set for friend events.
type NotificationPayload struct {
	Type       string `json:"type"`
	SenderID   int64  `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content,omitempty"`
}

// MessagePayload announces a new direct message.
type MessagePayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId,omitempty"`
	Content    string `json:"content,omitempty"`
}

// DirectMessagePayload is the client-originated echo of a persisted message.
type DirectMessagePayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
}

// PublicChatPayload is a broadcast chat line. UserID is set on the sending side;
// User describes the author on frames relayed to other participants.
type PublicChatPayload struct {
	UserID  int64     `json:"userId,omitempty"`
	User    *ChatUser `json:"user,omitempty"`
	Content string    `json:"content"`
}

// PublicChatJoinPayload announces presence in the public room.
type PublicChatJoinPayload struct {
	UserID int64     `json:"userId,omitempty"`
	User   *ChatUser `json:"user,omitempty"`
}

// ChatUser is the author info the server attaches to relayed public chat frames.
type ChatUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// FriendAddedPayload reports a friend-graph change.
type FriendAddedPayload struct {
	FriendID   int64  `json:"friendId,omitempty"`
	FriendName string `json:"friendName,omitempty"`
}

// NewEnvelope marshals payload into an Envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: data}, nil
}
