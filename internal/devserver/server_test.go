package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/socialhub-client/internal/api"
	"github.com/vovakirdan/socialhub-client/internal/proto"
	"github.com/vovakirdan/socialhub-client/internal/realtime"
	"github.com/vovakirdan/socialhub-client/internal/unread"
)

func startDevserver(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, ts *httptest.Server) (*realtime.Manager, *unread.Store) {
	t.Helper()
	manager := realtime.NewManager(realtime.Options{
		URL:            strings.Replace(ts.URL, "http", "ws", 1) + "/ws",
		DialTimeout:    2 * time.Second,
		ReconnectDelay: 50 * time.Millisecond,
	})
	t.Cleanup(manager.Disconnect)
	return manager, unread.New(manager, nil)
}

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

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestConnectReceivesInitSeed(t *testing.T) {
	ts := startDevserver(t)

	// seed the counters before the client connects
	resp := postJSON(t, ts.URL+"/api/users/42/unread", UnreadResponse{UnreadMessages: 3, UnreadNotifications: 1})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("seed unread: status %d", resp.StatusCode)
	}

	_, store := newClient(t, ts)
	store.Connect(42)

	waitFor(t, 3*time.Second, "init frame seeded the store", func() bool {
		snap := store.Snapshot()
		return snap.IsConnected && snap.UnreadMessages == 3 && snap.UnreadNotifications == 1
	})
}

func TestPushedFramesBumpCounters(t *testing.T) {
	ts := startDevserver(t)

	_, store := newClient(t, ts)
	store.Connect(42)
	waitFor(t, 3*time.Second, "connected", store.IsConnected)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, ts.URL+"/api/push", PushRequest{
			UserID: 42,
			Frame:  mustEnvelope(proto.TypeMessage, proto.MessagePayload{SenderID: 7, Content: "hi"}),
		})
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("push: status %d", resp.StatusCode)
		}
	}
	resp := postJSON(t, ts.URL+"/api/push", PushRequest{
		UserID: 42,
		Frame:  mustEnvelope(proto.TypeNotification, proto.NotificationPayload{Type: "post_like"}),
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("push: status %d", resp.StatusCode)
	}

	waitFor(t, 3*time.Second, "counters reflect pushed frames", func() bool {
		snap := store.Snapshot()
		return snap.UnreadMessages == 3 && snap.UnreadNotifications == 1
	})

	// the REST counters stayed consistent with the push channel
	client := api.New(ts.URL, nil)
	counts, err := client.GetUnread(context.Background(), 42)
	if err != nil {
		t.Fatalf("get unread: %v", err)
	}
	if counts.UnreadMessages != 3 || counts.UnreadNotifications != 1 {
		t.Fatalf("rest counters diverged: %+v", counts)
	}
}

func TestDirectMessageRelay(t *testing.T) {
	ts := startDevserver(t)

	alice, aliceStore := newClient(t, ts)
	aliceStore.Connect(1)
	waitFor(t, 3*time.Second, "alice connected", aliceStore.IsConnected)

	bob, bobStore := newClient(t, ts)
	bobStore.Connect(2)
	waitFor(t, 3*time.Second, "bob connected", bobStore.IsConnected)

	// bob watches his thread with alice the way a chat window would
	var relayed atomic.Value
	unsubscribe := bob.SubscribeType(proto.TypeMessage, func(env proto.Envelope) {
		var p proto.MessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.SenderID != 1 {
			return
		}
		relayed.Store(p.Content)
	})
	defer unsubscribe()

	// alice sends; bob's chat window and unread badge must both move
	waitFor(t, 3*time.Second, "alice send accepted", func() bool {
		return alice.SendDirectMessage(1, 2, "hello bob")
	})

	waitFor(t, 3*time.Second, "bob's chat window saw the message", func() bool {
		return relayed.Load() == "hello bob"
	})

	waitFor(t, 3*time.Second, "bob's unread messages incremented", func() bool {
		return bobStore.UnreadMessages() == 1
	})

	counts, err := api.New(ts.URL, nil).GetUnread(context.Background(), 2)
	if err != nil {
		t.Fatalf("get unread: %v", err)
	}
	if counts.UnreadMessages != 1 {
		t.Fatalf("rest unread for bob = %d, want 1", counts.UnreadMessages)
	}
}

func TestPublicChatBroadcast(t *testing.T) {
	ts := startDevserver(t)

	alice, aliceStore := newClient(t, ts)
	aliceStore.Connect(1)
	waitFor(t, 3*time.Second, "alice connected", aliceStore.IsConnected)

	bob, bobStore := newClient(t, ts)
	bobStore.Connect(2)
	waitFor(t, 3*time.Second, "bob connected", bobStore.IsConnected)

	var lines atomic.Int32
	var lastLine atomic.Value
	unsubscribe := bob.SubscribeType(proto.TypePublicChat, func(env proto.Envelope) {
		var p proto.PublicChatPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.User == nil {
			return
		}
		lastLine.Store(fmt.Sprintf("%s: %s", p.User.Username, p.Content))
		lines.Add(1)
	})
	defer unsubscribe()

	waitFor(t, 3*time.Second, "alice broadcast accepted", func() bool {
		return alice.SendPublicChat(1, "hello room")
	})

	waitFor(t, 3*time.Second, "bob saw the broadcast", func() bool { return lines.Load() == 1 })
	if got := lastLine.Load(); got != "user-1: hello room" {
		t.Fatalf("unexpected line: %v", got)
	}
	// the sender does not hear their own broadcast back
	if aliceStore.UnreadMessages() != 0 {
		t.Fatal("public chat must not touch unread counters")
	}
}

func TestUnreadRejectsBadUserID(t *testing.T) {
	ts := startDevserver(t)

	for _, id := range []string{"42abc", "abc", "4.2", ""} {
		resp, err := http.Get(ts.URL + "/api/users/" + id + "/unread")
		if err != nil {
			t.Fatalf("get unread %q: %v", id, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			t.Fatalf("id %q must be rejected", id)
		}
	}
}

func TestPushToUnknownUser(t *testing.T) {
	ts := startDevserver(t)

	resp := postJSON(t, ts.URL+"/api/push", PushRequest{
		UserID: 99,
		Frame:  mustEnvelope(proto.TypeMessage, proto.MessagePayload{SenderID: 1}),
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unconnected user, got %d", resp.StatusCode)
	}
}
