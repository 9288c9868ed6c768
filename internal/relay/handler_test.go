package relay

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmswain/chat-relay/internal/protocol"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestServer(t *testing.T) (*httptest.Server, *Registry) {
	t.Helper()
	r := NewRegistry(&fakeStore{}, nil)
	h := NewHandler(r, DefaultHandlerConfig(), nil)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server, r
}

func dialUser(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(server)+"?userId="+userID, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", userID, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) protocol.Event {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	evt, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return evt
}

func waitForStats(t *testing.T, r *Registry, want RegistryStats) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Stats() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("stats = %+v, want %+v", r.Stats(), want)
}

func TestHandler_RejectsMissingUserID(t *testing.T) {
	server, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err == nil {
		t.Fatal("expected handshake to fail without userId")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("expected 400 response, got %+v", resp)
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	server, r := newTestServer(t)

	alice := dialUser(t, server, "alice")
	bob := dialUser(t, server, "bob")
	waitForStats(t, r, RegistryStats{Connections: 2})

	join := []byte(`{"type":"JOIN_ROOM","payload":{"roomId":"general"}}`)
	if err := alice.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	waitForStats(t, r, RegistryStats{Connections: 2, Rooms: 1})
	if err := bob.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	// Alice hears bob come online.
	evt := readEvent(t, alice)
	if evt.Type != protocol.EventPresence {
		t.Fatalf("got %s, want PRESENCE", evt.Type)
	}
	p, err := evt.PresencePayload()
	if err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	if p.UserID != "bob" || p.Status != protocol.StatusOnline {
		t.Errorf("presence = %+v", p)
	}

	msg := []byte(`{"type":"MESSAGE","payload":{"senderId":"alice","content":"hi","roomId":"general"}}`)
	if err := alice.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("alice send failed: %v", err)
	}

	// Both members receive the persisted message.
	for name, ws := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		evt := readEvent(t, ws)
		if evt.Type != protocol.EventMessage {
			t.Fatalf("%s got %s, want MESSAGE", name, evt.Type)
		}
		m, err := evt.Message()
		if err != nil {
			t.Fatalf("%s decode message: %v", name, err)
		}
		if m.Content != "hi" || m.SenderID != "alice" || m.ID == "" {
			t.Errorf("%s message = %+v", name, m)
		}
	}

	// Disconnecting alice announces offline to bob and cleans up.
	alice.Close()
	evt = readEvent(t, bob)
	if evt.Type != protocol.EventPresence {
		t.Fatalf("got %s, want PRESENCE", evt.Type)
	}
	p, err = evt.PresencePayload()
	if err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	if p.UserID != "alice" || p.Status != protocol.StatusOffline {
		t.Errorf("presence = %+v", p)
	}
	waitForStats(t, r, RegistryStats{Connections: 1, Rooms: 1})
}

func TestHandler_ReconnectReplacesSession(t *testing.T) {
	server, r := newTestServer(t)

	first := dialUser(t, server, "alice")
	waitForStats(t, r, RegistryStats{Connections: 1})

	second := dialUser(t, server, "alice")

	// The replaced connection is closed by the server.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Error("expected read on replaced connection to fail")
	}

	// The new session stays registered and usable.
	waitForStats(t, r, RegistryStats{Connections: 1})
	join := []byte(`{"type":"JOIN_ROOM","payload":{"roomId":"general"}}`)
	if err := second.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("join on new session failed: %v", err)
	}
	waitForStats(t, r, RegistryStats{Connections: 1, Rooms: 1})
}
