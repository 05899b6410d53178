package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FrameKind enumerates the inbound frame variants the client understands.
type FrameKind int

const (
	// FrameUnknown covers frame types outside the known set; routed only to
	// catch-all observers.
	FrameUnknown FrameKind = iota
	// FrameInit seeds the unread counters.
	FrameInit
	// FrameNotification is a notification event, refined by a sub-type.
	FrameNotification
	// FrameMessage announces a new direct message.
	FrameMessage
	// FrameFriendAdded reports a friend-graph change.
	FrameFriendAdded
)

// String returns the wire name of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameInit:
		return TypeInit
	case FrameNotification:
		return TypeNotification
	case FrameMessage:
		return TypeMessage
	case FrameFriendAdded:
		return TypeFriendAdded
	default:
		return "unknown"
	}
}

// Frame is the decoded form of an inbound Envelope. Exactly one of the typed
// payload fields is set, matching Kind; Envelope always carries the raw frame.
type Frame struct {
	Kind         FrameKind
	Envelope     Envelope
	Init         *InitPayload
	Notification *NotificationPayload
	Message      *MessagePayload
	FriendAdded  *FriendAddedPayload
}

var (
	// ErrMalformedFrame marks data that is not a valid envelope at all.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMissingType marks an envelope without a type tag.
	ErrMissingType = errors.New("frame has no type")
)

// DecodeFrame parses raw wire data into a Frame. Unknown types decode
// successfully with FrameUnknown; structurally invalid data returns an error
// so the caller can drop the frame.
func DecodeFrame(data []byte) (Frame, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return Frame{}, ErrMissingType
	}

	frame := Frame{Kind: FrameUnknown, Envelope: env}

	switch env.Type {
	case TypeInit:
		var p InitPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Frame{}, err
		}
		frame.Kind = FrameInit
		frame.Init = &p
	case TypeNotification:
		var p NotificationPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Frame{}, err
		}
		frame.Kind = FrameNotification
		frame.Notification = &p
	case TypeMessage:
		var p MessagePayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Frame{}, err
		}
		frame.Kind = FrameMessage
		frame.Message = &p
	case TypeFriendAdded:
		var p FriendAddedPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Frame{}, err
		}
		frame.Kind = FrameFriendAdded
		frame.FriendAdded = &p
	}

	return frame, nil
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformedFrame, err)
	}
	return nil
}
