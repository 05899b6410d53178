package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/socialhub-client/internal/proto"
)

// clientConn is one authenticated websocket session.
type clientConn struct {
	userID int64
	frames chan proto.Envelope
	cancel context.CancelFunc
}

func (c *clientConn) enqueue(env proto.Envelope) {
	select {
	case c.frames <- env:
	default:
		// slow consumer; drop rather than block the whole server
	}
}

func (c *clientConn) close() {
	c.cancel()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The first frame must be auth; nothing is delivered before it.
	userID, err := s.awaitAuth(ctx, conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws handshake failed")
		conn.Close(websocket.StatusPolicyViolation, "auth required")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := &clientConn{
		userID: userID,
		frames: make(chan proto.Envelope, 16),
		cancel: cancel,
	}
	s.register(client)
	defer s.unregister(client)

	s.log.Info().Int64("user_id", userID).Msg("client authenticated")

	client.enqueue(mustEnvelope(proto.TypeInit, s.initPayload(userID)))

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- s.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if st := websocket.CloseStatus(err); st != 0 && st != -1 {
			status = st
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			s.log.Warn().Err(err).Int64("user_id", userID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (s *Server) awaitAuth(ctx context.Context, conn *websocket.Conn) (int64, error) {
	var env proto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		return 0, fmt.Errorf("read auth frame: %w", err)
	}
	if env.Type != proto.TypeAuth {
		return 0, fmt.Errorf("expected auth frame, got %q", env.Type)
	}
	var auth proto.AuthPayload
	if err := json.Unmarshal(env.Payload, &auth); err != nil {
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if auth.UserID == 0 {
		return 0, errors.New("auth payload has no userId")
	}
	return auth.UserID, nil
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, client *clientConn) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}

		switch env.Type {
		case proto.TypeDirectMessage:
			s.relayDirectMessage(client, env)
		case proto.TypePublicChat:
			s.relayPublicChat(client, env)
		case proto.TypePublicChatJoin:
			s.broadcast(client.userID, mustEnvelope(proto.TypePublicChatJoin, proto.PublicChatJoinPayload{
				User: chatUser(client.userID),
			}))
		default:
			s.log.Warn().Str("type", env.Type).Int64("user_id", client.userID).Msg("unhandled inbound frame")
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, client *clientConn) error {
	for {
		select {
		case env := <-client.frames:
			if err := wsjson.Write(ctx, conn, env); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relayDirectMessage turns a client's direct_message echo into the message
// frame the receiver's badge logic expects, bumping their unread counter.
func (s *Server) relayDirectMessage(client *clientConn, env proto.Envelope) {
	var dm proto.DirectMessagePayload
	if err := json.Unmarshal(env.Payload, &dm); err != nil {
		s.log.Warn().Err(err).Msg("bad direct_message payload")
		return
	}

	s.bumpUnread(dm.ReceiverID, 1, 0)
	s.deliver(dm.ReceiverID, mustEnvelope(proto.TypeMessage, proto.MessagePayload{
		SenderID:   client.userID,
		ReceiverID: dm.ReceiverID,
		Content:    dm.Content,
	}))
}

func (s *Server) relayPublicChat(client *clientConn, env proto.Envelope) {
	var chat proto.PublicChatPayload
	if err := json.Unmarshal(env.Payload, &chat); err != nil {
		s.log.Warn().Err(err).Msg("bad public_chat payload")
		return
	}

	s.broadcast(client.userID, mustEnvelope(proto.TypePublicChat, proto.PublicChatPayload{
		User:    chatUser(client.userID),
		Content: chat.Content,
	}))
}

func chatUser(userID int64) *proto.ChatUser {
	return &proto.ChatUser{
		ID:       userID,
		Username: fmt.Sprintf("user-%d", userID),
	}
}

func mustEnvelope(msgType string, payload any) proto.Envelope {
	env, err := proto.NewEnvelope(msgType, payload)
	if err != nil {
		panic(err)
	}
	return env
}
