// Package devserver is a simulated socialhub backend for development and
// integration tests. It speaks the exact realtime wire protocol (auth
// handshake, init seed, relayed chat frames) and exposes the REST endpoints
// the client polls, plus an injection endpoint to push arbitrary frames at a
// connected client.
package devserver

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socialhub-client/internal/proto"
)

// Server holds connected clients and their unread counters.
type Server struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[int64]*clientConn
	unread  map[int64]counters
}

type counters struct {
	messages      int
	notifications int
}

// New builds an empty devserver.
func New(logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		log:     logger.With().Str("component", "devserver").Logger(),
		clients: make(map[int64]*clientConn),
		unread:  make(map[int64]counters),
	}
}

// Handler returns the HTTP handler serving /ws, /health, and the REST API.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws", func(c *gin.Context) {
		s.handleWS(c.Writer, c.Request)
	})
	r.GET("/api/users/:id/unread", s.getUnread)
	r.POST("/api/users/:id/unread", s.setUnread)
	r.POST("/api/push", s.pushFrame)

	return r
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UnreadResponse is the REST representation of a user's unread counters.
type UnreadResponse struct {
	UnreadMessages      int `json:"unreadMessages"`
	UnreadNotifications int `json:"unreadNotifications"`
}

// GET /api/users/:id/unread
func (s *Server) getUnread(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	counts := s.unread[userID]
	s.mu.Unlock()

	c.JSON(http.StatusOK, UnreadResponse{
		UnreadMessages:      counts.messages,
		UnreadNotifications: counts.notifications,
	})
}

// POST /api/users/:id/unread
// Seeds the counters a future connection's init frame will carry.
func (s *Server) setUnread(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req UnreadResponse
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	s.mu.Lock()
	s.unread[userID] = counters{messages: req.UnreadMessages, notifications: req.UnreadNotifications}
	s.mu.Unlock()

	c.Status(http.StatusNoContent)
}

// PushRequest injects a frame at a connected client.
type PushRequest struct {
	UserID int64          `json:"userId" binding:"required"`
	Frame  proto.Envelope `json:"frame" binding:"required"`
}

// POST /api/push
func (s *Server) pushFrame(c *gin.Context) {
	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Frame.Type == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "frame type is required"})
		return
	}

	if !s.deliver(req.UserID, req.Frame) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not connected"})
		return
	}

	// Keep the REST counters consistent with what the push channel claims.
	switch req.Frame.Type {
	case proto.TypeMessage:
		s.bumpUnread(req.UserID, 1, 0)
	case proto.TypeNotification:
		s.bumpUnread(req.UserID, 0, 1)
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) bumpUnread(userID int64, messages, notifications int) {
	s.mu.Lock()
	counts := s.unread[userID]
	counts.messages += messages
	counts.notifications += notifications
	s.unread[userID] = counts
	s.mu.Unlock()
}

// deliver queues a frame for a connected client; reports false if absent.
func (s *Server) deliver(userID int64, env proto.Envelope) bool {
	s.mu.Lock()
	client := s.clients[userID]
	s.mu.Unlock()
	if client == nil {
		return false
	}
	client.enqueue(env)
	return true
}

// broadcast queues a frame for every connected client except the sender.
func (s *Server) broadcast(fromUserID int64, env proto.Envelope) {
	s.mu.Lock()
	targets := make([]*clientConn, 0, len(s.clients))
	for id, client := range s.clients {
		if id != fromUserID {
			targets = append(targets, client)
		}
	}
	s.mu.Unlock()

	for _, client := range targets {
		client.enqueue(env)
	}
}

func (s *Server) register(client *clientConn) {
	s.mu.Lock()
	if old := s.clients[client.userID]; old != nil {
		old.close()
	}
	s.clients[client.userID] = client
	s.mu.Unlock()
}

func (s *Server) unregister(client *clientConn) {
	s.mu.Lock()
	if s.clients[client.userID] == client {
		delete(s.clients, client.userID)
	}
	s.mu.Unlock()
}

func (s *Server) initPayload(userID int64) proto.InitPayload {
	s.mu.Lock()
	counts := s.unread[userID]
	s.mu.Unlock()
	return proto.InitPayload{
		UnreadMessages:      counts.messages,
		UnreadNotifications: counts.notifications,
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return 0, false
	}
	return userID, true
}
