package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/socialhub-client/internal/proto"
)

// testServer is a scriptable realtime endpoint. Each accepted connection is
// delivered on conns; while failing is set, upgrade requests are rejected so
// the client's dial fails outright.
type testServer struct {
	t        *testing.T
	srv      *httptest.Server
	requests atomic.Int32
	accepted atomic.Int32
	failing  atomic.Bool
	conns    chan *serverConn
}

// serverConn is the server side of one accepted connection. Every inbound
// envelope (the auth frame included) lands on inbound; done closes when the
// connection dies.
type serverConn struct {
	conn    *websocket.Conn
	inbound chan proto.Envelope
	done    chan struct{}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{t: t, conns: make(chan *serverConn, 16)}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)

	return s
}

func (s *testServer) url() string {
	return strings.Replace(s.srv.URL, "http", "ws", 1) + "/ws"
}

func (s *testServer) handleWS(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	if s.failing.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	s.accepted.Add(1)

	sc := &serverConn{
		conn:    conn,
		inbound: make(chan proto.Envelope, 16),
		done:    make(chan struct{}),
	}
	s.conns <- sc

	defer close(sc.done)
	for {
		var env proto.Envelope
		if err := wsjson.Read(r.Context(), conn, &env); err != nil {
			return
		}
		sc.inbound <- env
	}
}

func (c *serverConn) write(t *testing.T, env proto.Envelope) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, env); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (c *serverConn) writeRaw(t *testing.T, data []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("server raw write: %v", err)
	}
}

func (c *serverConn) closeClean() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *serverConn) closeAbrupt() {
	_ = c.conn.CloseNow()
}

func (c *serverConn) closeGoingAway() {
	_ = c.conn.Close(websocket.StatusGoingAway, "server restarting")
}

// waitConn returns the next accepted connection or fails the test.
func (s *testServer) waitConn(t *testing.T) *serverConn {
	t.Helper()
	select {
	case sc := <-s.conns:
		return sc
	case <-time.After(3 * time.Second):
		t.Fatalf("no connection accepted in time")
		return nil
	}
}

// expectAuth asserts the first inbound frame is a valid auth envelope.
func (c *serverConn) expectAuth(t *testing.T, wantUserID int64) {
	t.Helper()
	select {
	case env := <-c.inbound:
		if env.Type != proto.TypeAuth {
			t.Fatalf("first frame must be auth, got %q", env.Type)
		}
		var auth proto.AuthPayload
		if err := json.Unmarshal(env.Payload, &auth); err != nil {
			t.Fatalf("decode auth: %v", err)
		}
		if auth.UserID != wantUserID {
			t.Fatalf("auth userId = %d, want %d", auth.UserID, wantUserID)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no auth frame received in time")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in %v: %s", timeout, msg)
}

// hangingServer never completes the upgrade: a dial against it stays in the
// connecting state until the client gives up.
type hangingServer struct {
	srv      *httptest.Server
	requests atomic.Int32
	accepted atomic.Int32
}

func newHangingServer(t *testing.T) *hangingServer {
	t.Helper()

	h := &hangingServer{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		<-r.Context().Done()
	}))
	t.Cleanup(h.srv.Close)

	return h
}

func (h *hangingServer) url() string {
	return strings.Replace(h.srv.URL, "http", "ws", 1) + "/ws"
}

func newTestManager(s *testServer, maxAttempts int, delay time.Duration) *Manager {
	return NewManager(Options{
		URL:                  s.url(),
		DialTimeout:          2 * time.Second,
		ReconnectDelay:       delay,
		MaxReconnectAttempts: maxAttempts,
	})
}
