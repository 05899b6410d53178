package realtime

import "github.com/vovakirdan/socialhub-client/internal/proto"

// Handlers is the set of optional callbacks a consumer may register with
// Connect. A nil callback is simply skipped; none of them is required.
//
// All callbacks run on the connection's read goroutine, in frame-arrival
// order. They must not block.
type Handlers struct {
	// OnConnect fires once per successful open, after the auth frame was sent.
	OnConnect func()

	// OnDisconnect fires when the transport closes, cleanly or not. It does
	// not fire for a close caused by an explicit Disconnect call.
	OnDisconnect func()

	// OnInit delivers the server's counter seed, once per connection.
	OnInit func(proto.InitPayload)

	// OnFriendRequest fires for notification frames whose sub-type is
	// friend_request.
	OnFriendRequest func(proto.NotificationPayload)

	// OnFriendRequestAccepted fires for notification frames whose sub-type is
	// friend_request_accepted.
	OnFriendRequestAccepted func(proto.NotificationPayload)

	// OnNewNotification fires for notification frames with any other sub-type.
	OnNewNotification func(proto.NotificationPayload)

	// OnNewMessage fires for message frames.
	OnNewMessage func(proto.MessagePayload)

	// OnFriendAdded fires for friend_added frames.
	OnFriendAdded func(proto.FriendAddedPayload)

	// OnFrame is the catch-all: it receives every decoded frame, known or
	// unknown, after the typed callbacks above have fired.
	OnFrame func(proto.Frame)
}

// dispatch routes one decoded frame to the registered callbacks. For
// notification frames exactly one of the three sub-type callbacks fires; the
// catch-all always fires last.
func (h Handlers) dispatch(frame proto.Frame) {
	switch frame.Kind {
	case proto.FrameInit:
		if h.OnInit != nil && frame.Init != nil {
			h.OnInit(*frame.Init)
		}
	case proto.FrameNotification:
		if frame.Notification != nil {
			h.dispatchNotification(*frame.Notification)
		}
	case proto.FrameMessage:
		if h.OnNewMessage != nil && frame.Message != nil {
			h.OnNewMessage(*frame.Message)
		}
	case proto.FrameFriendAdded:
		if h.OnFriendAdded != nil && frame.FriendAdded != nil {
			h.OnFriendAdded(*frame.FriendAdded)
		}
	case proto.FrameUnknown:
		// only the catch-all sees it
	}

	if h.OnFrame != nil {
		h.OnFrame(frame)
	}
}

func (h Handlers) dispatchNotification(p proto.NotificationPayload) {
	switch {
	case p.Type == proto.NotificationFriendRequest && h.OnFriendRequest != nil:
		h.OnFriendRequest(p)
	case p.Type == proto.NotificationFriendRequestAccepted && h.OnFriendRequestAccepted != nil:
		h.OnFriendRequestAccepted(p)
	case h.OnNewNotification != nil:
		h.OnNewNotification(p)
	}
}
