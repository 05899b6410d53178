// Package unread holds the process-wide realtime state every UI surface
// reads: the connection flag and the two unread counters. It is constructed
// once at application start and passed by reference; there is no package
// global.
package unread

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socialhub-client/internal/proto"
	"github.com/vovakirdan/socialhub-client/internal/realtime"
)

// Connector is the slice of the connection manager the store drives.
type Connector interface {
	Connect(userID int64, h realtime.Handlers)
	Disconnect()
	IsConnected() bool
}

// Snapshot is an immutable view of the store, delivered to change observers.
type Snapshot struct {
	IsConnected         bool
	UnreadMessages      int
	UnreadNotifications int
}

// Store tracks connection status and unread counters. All mutation goes
// through its methods; frames mutate it only via the handler set it installs
// on Connect.
type Store struct {
	conn Connector
	log  zerolog.Logger

	mu                  sync.Mutex
	connected           bool
	tracking            bool
	unreadMessages      int
	unreadNotifications int
	watchers            map[string]func(Snapshot)
}

// New builds a store around the given connector.
func New(conn Connector, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{
		conn:     conn,
		log:      logger.With().Str("component", "unread").Logger(),
		watchers: make(map[string]func(Snapshot)),
	}
}

// Connect opens the realtime connection for userID. If a connection is
// already tracked it is torn down first, so at most one transport ever
// exists. Counters are seeded by the server's init frame and bumped by one
// per notification or message frame; sub-types are irrelevant to counting.
func (s *Store) Connect(userID int64) {
	s.mu.Lock()
	if s.tracking {
		s.mu.Unlock()
		s.Disconnect()
		s.mu.Lock()
	}
	s.tracking = true
	s.mu.Unlock()

	s.conn.Connect(userID, realtime.Handlers{
		OnConnect: func() {
			s.setConnected(true)
		},
		OnDisconnect: func() {
			s.setConnected(false)
		},
		OnFrame: func(frame proto.Frame) {
			switch frame.Kind {
			case proto.FrameInit:
				s.seed(*frame.Init)
			case proto.FrameNotification:
				s.IncrementNotificationCount()
			case proto.FrameMessage:
				s.IncrementMessageCount()
			case proto.FrameFriendAdded, proto.FrameUnknown:
				// no counter is tied to these
			}
		},
	})
}

// Disconnect tears down the connection. Counters are left untouched: a
// disconnect is not a read event.
func (s *Store) Disconnect() {
	s.conn.Disconnect()

	s.mu.Lock()
	s.tracking = false
	s.connected = false
	snap := s.snapshotLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, snap)
}

// IsConnected reports the last observed transport status.
func (s *Store) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Snapshot returns a point-in-time copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UnreadMessages returns the current unread message count.
func (s *Store) UnreadMessages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadMessages
}

// UnreadNotifications returns the current unread notification count.
func (s *Store) UnreadNotifications() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadNotifications
}

// IncrementMessageCount adds one unread message.
func (s *Store) IncrementMessageCount() {
	s.update(func() { s.unreadMessages++ })
}

// IncrementNotificationCount adds one unread notification.
func (s *Store) IncrementNotificationCount() {
	s.update(func() { s.unreadNotifications++ })
}

// ResetMessageCount zeroes the message counter; called when the user opens
// the messages section. Idempotent.
func (s *Store) ResetMessageCount() {
	s.update(func() { s.unreadMessages = 0 })
}

// ResetNotificationCount zeroes the notification counter; called when the
// user opens the notifications section. Idempotent.
func (s *Store) ResetNotificationCount() {
	s.update(func() { s.unreadNotifications = 0 })
}

// SetMessageCount overwrites the message counter with a server-reported
// value obtained out of band (REST poll). Last write wins.
func (s *Store) SetMessageCount(n int) {
	s.update(func() { s.unreadMessages = n })
}

// SetNotificationCount overwrites the notification counter with a
// server-reported value obtained out of band (REST poll). Last write wins.
func (s *Store) SetNotificationCount(n int) {
	s.update(func() { s.unreadNotifications = n })
}

// OnChange registers an observer called with a fresh snapshot after every
// mutation. The returned function removes the observer.
func (s *Store) OnChange(fn func(Snapshot)) (remove func()) {
	id := uuid.NewString()

	s.mu.Lock()
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Store) seed(p proto.InitPayload) {
	s.update(func() {
		s.unreadMessages = p.UnreadMessages
		s.unreadNotifications = p.UnreadNotifications
	})
	s.log.Debug().
		Int("unread_messages", p.UnreadMessages).
		Int("unread_notifications", p.UnreadNotifications).
		Msg("counters seeded")
}

func (s *Store) setConnected(v bool) {
	s.update(func() { s.connected = v })
}

func (s *Store) update(mutate func()) {
	s.mu.Lock()
	mutate()
	snap := s.snapshotLocked()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		IsConnected:         s.connected,
		UnreadMessages:      s.unreadMessages,
		UnreadNotifications: s.unreadNotifications,
	}
}

func (s *Store) watchersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(Snapshot), snap Snapshot) {
	for _, fn := range watchers {
		fn(snap)
	}
}
