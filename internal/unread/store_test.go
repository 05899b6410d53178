package unread

import (
	"testing"

	"github.com/vovakirdan/socialhub-client/internal/proto"
	"github.com/vovakirdan/socialhub-client/internal/realtime"
)

// fakeConnector records lifecycle calls and hands the installed handler set
// back to the test so frames can be simulated without a socket.
type fakeConnector struct {
	connects    []int64
	disconnects int
	handlers    realtime.Handlers
	connected   bool
}

func (f *fakeConnector) Connect(userID int64, h realtime.Handlers) {
	f.connects = append(f.connects, userID)
	f.handlers = h
	f.connected = true
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

func (f *fakeConnector) Disconnect() {
	f.disconnects++
	f.connected = false
}

func (f *fakeConnector) IsConnected() bool { return f.connected }

// frame builds a decoded frame the way the manager would.
func frame(t *testing.T, raw string) proto.Frame {
	t.Helper()
	f, err := proto.DecodeFrame([]byte(raw))
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func newTestStore(t *testing.T) (*Store, *fakeConnector) {
	t.Helper()
	conn := &fakeConnector{}
	return New(conn, nil), conn
}

func TestConnectTracksStatus(t *testing.T) {
	s, conn := newTestStore(t)

	if s.IsConnected() {
		t.Fatal("fresh store must not be connected")
	}

	s.Connect(42)
	if len(conn.connects) != 1 || conn.connects[0] != 42 {
		t.Fatalf("unexpected connect calls: %+v", conn.connects)
	}
	if !s.IsConnected() {
		t.Fatal("store must reflect the open transport")
	}

	conn.handlers.OnDisconnect()
	if s.IsConnected() {
		t.Fatal("store must reflect the closed transport")
	}
}

func TestConnectTwiceDisconnectsFirst(t *testing.T) {
	s, conn := newTestStore(t)

	s.Connect(1)
	s.Connect(2)

	if conn.disconnects != 1 {
		t.Fatalf("second connect must tear down the first, got %d disconnects", conn.disconnects)
	}
	if len(conn.connects) != 2 || conn.connects[1] != 2 {
		t.Fatalf("unexpected connect calls: %+v", conn.connects)
	}
}

func TestInitSeedsCounters(t *testing.T) {
	s, conn := newTestStore(t)
	s.Connect(42)

	conn.handlers.OnFrame(frame(t, `{"type":"init","payload":{"unreadMessages":3,"unreadNotifications":1}}`))

	if got := s.UnreadMessages(); got != 3 {
		t.Fatalf("unreadMessages = %d, want 3", got)
	}
	if got := s.UnreadNotifications(); got != 1 {
		t.Fatalf("unreadNotifications = %d, want 1", got)
	}
}

func TestCountersIncrementPerFrame(t *testing.T) {
	s, conn := newTestStore(t)
	s.Connect(42)

	for i := 0; i < 3; i++ {
		conn.handlers.OnFrame(frame(t, `{"type":"message","payload":{"senderId":7}}`))
	}
	// notification sub-types are irrelevant to counting
	conn.handlers.OnFrame(frame(t, `{"type":"notification","payload":{"type":"friend_request"}}`))
	conn.handlers.OnFrame(frame(t, `{"type":"notification","payload":{"type":"post_like"}}`))

	if got := s.UnreadMessages(); got != 3 {
		t.Fatalf("unreadMessages = %d, want 3", got)
	}
	if got := s.UnreadNotifications(); got != 2 {
		t.Fatalf("unreadNotifications = %d, want 2", got)
	}

	// frames that carry no counter
	conn.handlers.OnFrame(frame(t, `{"type":"friend_added","payload":{"friendId":9}}`))
	conn.handlers.OnFrame(frame(t, `{"type":"public_chat","payload":{"content":"hi"}}`))

	if s.UnreadMessages() != 3 || s.UnreadNotifications() != 2 {
		t.Fatal("friend_added and unknown frames must not touch counters")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	s, conn := newTestStore(t)
	s.Connect(42)

	for i := 0; i < 3; i++ {
		conn.handlers.OnFrame(frame(t, `{"type":"message","payload":{"senderId":7}}`))
	}
	s.ResetMessageCount()
	s.ResetMessageCount()
	s.ResetMessageCount()
	if got := s.UnreadMessages(); got != 0 {
		t.Fatalf("unreadMessages = %d, want 0", got)
	}

	// resets while disconnected are fine too
	s.Disconnect()
	s.ResetMessageCount()
	s.ResetNotificationCount()
	if s.UnreadMessages() != 0 || s.UnreadNotifications() != 0 {
		t.Fatal("reset after disconnect must still yield 0")
	}
}

func TestDisconnectLeavesCountersAlone(t *testing.T) {
	s, conn := newTestStore(t)
	s.Connect(42)

	conn.handlers.OnFrame(frame(t, `{"type":"init","payload":{"unreadMessages":5,"unreadNotifications":2}}`))
	s.Disconnect()

	if conn.disconnects != 1 {
		t.Fatalf("expected 1 disconnect, got %d", conn.disconnects)
	}
	if s.IsConnected() {
		t.Fatal("store must not report connected after disconnect")
	}
	if s.UnreadMessages() != 5 || s.UnreadNotifications() != 2 {
		t.Fatal("disconnect is not a read event; counters must survive")
	}
}

func TestSetOverwritesCounters(t *testing.T) {
	s, conn := newTestStore(t)
	s.Connect(42)

	conn.handlers.OnFrame(frame(t, `{"type":"message","payload":{"senderId":7}}`))
	s.SetMessageCount(10)
	s.SetNotificationCount(4)

	if s.UnreadMessages() != 10 || s.UnreadNotifications() != 4 {
		t.Fatalf("unexpected counters after set: %+v", s.Snapshot())
	}

	// push keeps working on top of the synced value
	conn.handlers.OnFrame(frame(t, `{"type":"message","payload":{"senderId":7}}`))
	if got := s.UnreadMessages(); got != 11 {
		t.Fatalf("unreadMessages = %d, want 11", got)
	}
}

func TestOnChangeObservers(t *testing.T) {
	s, _ := newTestStore(t)

	var last Snapshot
	var calls int
	remove := s.OnChange(func(snap Snapshot) {
		last = snap
		calls++
	})

	s.IncrementMessageCount()
	s.IncrementNotificationCount()
	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}
	if last.UnreadMessages != 1 || last.UnreadNotifications != 1 {
		t.Fatalf("unexpected snapshot: %+v", last)
	}

	remove()
	s.IncrementMessageCount()
	if calls != 2 {
		t.Fatalf("removed observer still notified, calls=%d", calls)
	}
}
