package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/pushrules/game/service"
)

func testView(sessionID string, level int) *service.StateView {
	return &service.StateView{
		SessionID: sessionID,
		Level:     level,
		Rows:      []string{"#@$#"},
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || cap(hub.broadcast) != broadcastBuffer {
		t.Error("Hub broadcast channel is not buffered")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}
	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	// Register then unregister
	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// Unregistering twice is harmless
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: sessionID, Event: EventStateUpdate, State: testView(sessionID, 2)})

	for i, c := range []*Client{client1, client2} {
		select {
		case <-c.send:
		default:
			t.Errorf("client%d did not receive the update", i+1)
		}
	}
	select {
	case <-other.send:
		t.Error("Update leaked to another session")
	default:
	}

	hub.unregisterClient(client1)
	if len(hub.sessions[sessionID]) != 1 || !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	sessionID := "broadcast-test"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	hub.registerClient(client)

	hub.BroadcastToSession(sessionID, testView(sessionID, 1))

	// Without Run the update waits in the queue
	var queued *Message
	select {
	case queued = <-hub.broadcast:
	default:
		t.Fatal("Expected update to be queued")
	}
	hub.broadcastMessage(queued)

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %q, got %s", EventStateUpdate, message.Event)
		}
		if message.State == nil || message.State.Level != 1 || message.State.Rows[0] != "#@$#" {
			t.Errorf("State not correctly transmitted: %+v", message.State)
		}
	default:
		t.Error("No message received")
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.BroadcastToSession("flood", testView("flood", i))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastToSession blocked with no hub running")
	}
	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected a full queue of %d, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "slow", Event: EventStateUpdate})

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("Slow client should have been dropped")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()
	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" || message.Event != "custom-event" || message.Data != "test-data" {
			t.Errorf("Unexpected message: %+v", message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message received within timeout")
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc, chan error) {
	t.Helper()
	return startHubWith(t, func(_ *Hub, sessionID string) (*service.StateView, error) {
		return testView(sessionID, 0), nil
	})
}

// startHubWith runs a hub behind a test server whose viewers get their
// initial state from snapshot
func startHubWith(t *testing.T, snapshot func(hub *Hub, sessionID string) (*service.StateView, error)) (*Hub, *httptest.Server, context.CancelFunc, chan error) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- hub.Run(ctx) }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		hub.ServeWS(w, r, sessionID, func() (*service.StateView, error) {
			return snapshot(hub, sessionID)
		})
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, server, cancel, errc
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func TestWebSocketReceivesStateUpdates(t *testing.T) {
	hub, server, _, _ := startHub(t)
	conn := dial(t, server, "msg-test")

	// The initial state arrives once the viewer is registered
	first := readMessage(t, conn)
	if first.Event != EventConnected || first.State == nil || first.State.SessionID != "msg-test" {
		t.Fatalf("Expected connected message with state, got %+v", first)
	}

	hub.BroadcastToSession("other", testView("other", 9))
	hub.BroadcastToSession("msg-test", testView("msg-test", 3))

	update := readMessage(t, conn)
	if update.Event != EventStateUpdate {
		t.Errorf("Expected %q, got %q", EventStateUpdate, update.Event)
	}
	if update.State.Level != 3 {
		t.Errorf("Expected level 3 update, got %d", update.State.Level)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	_, server, cancel, errc := startHub(t)
	conn := dial(t, server, "stop-test")
	readMessage(t, conn)

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	// The viewer sees the connection close
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed")
	}
}

func TestWebSocketUpdateDuringConnectIsDelivered(t *testing.T) {
	// An action lands after the viewer registered but before its initial
	// state is read
	_, server, _, _ := startHubWith(t, func(hub *Hub, sessionID string) (*service.StateView, error) {
		hub.BroadcastToSession(sessionID, testView(sessionID, 5))
		return testView(sessionID, 5), nil
	})
	conn := dial(t, server, "race-test")

	update := readMessage(t, conn)
	if update.Event != EventStateUpdate || update.State.Level != 5 {
		t.Fatalf("Expected the level 5 update first, got %+v", update)
	}
	connected := readMessage(t, conn)
	if connected.Event != EventConnected || connected.State.Level != 5 {
		t.Errorf("Expected connected message at level 5, got %+v", connected)
	}
}

func TestWebSocketConnectedGoesOnlyToNewViewer(t *testing.T) {
	hub, server, _, _ := startHub(t)
	first := dial(t, server, "shared")
	readMessage(t, first)

	second := dial(t, server, "shared")
	readMessage(t, second)

	hub.BroadcastToSession("shared", testView("shared", 4))
	if msg := readMessage(t, first); msg.Event != EventStateUpdate || msg.State.Level != 4 {
		t.Errorf("Expected the first viewer's next message to be the update, got %+v", msg)
	}
}

func TestWebSocketSnapshotErrorClosesConnection(t *testing.T) {
	_, server, _, _ := startHubWith(t, func(*Hub, string) (*service.StateView, error) {
		return nil, service.ErrSessionNotFound
	})
	conn := dial(t, server, "gone")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed")
	}
}
