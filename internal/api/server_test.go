package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openfluids/tankwatch/internal/history"
	"github.com/openfluids/tankwatch/internal/infrastructure/config"
	"github.com/openfluids/tankwatch/internal/infrastructure/database"
	"github.com/openfluids/tankwatch/internal/infrastructure/logging"
	"github.com/openfluids/tankwatch/internal/infrastructure/mqtt"
	"github.com/openfluids/tankwatch/internal/session"
)

// publishRecord captures one publish issued through the fake broker.
type publishRecord struct {
	topic   string
	payload string
}

// fakeBroker satisfies session.Broker without a live MQTT connection.
type fakeBroker struct {
	mu        sync.Mutex
	state     mqtt.ConnectionState
	published []publishRecord
}

func (f *fakeBroker) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) error {
	return nil
}

func (f *fakeBroker) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishRecord{topic: topic, payload: string(payload)})
	return nil
}

func (f *fakeBroker) State() mqtt.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeBroker) lastPublish(t *testing.T) publishRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		t.Fatal("expected at least one publish, got none")
	}
	return f.published[len(f.published)-1]
}

// testServer creates a Server backed by a real session over a fake broker.
func testServer(t *testing.T) (*Server, *session.Session, *fakeBroker) {
	t.Helper()

	broker := &fakeBroker{state: mqtt.StateConnected}
	sess := session.New(broker, 1)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  log,
		Session: sess,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, sess, broker
}

// testHistoryRepo creates a command log repository backed by a temp SQLite file.
func testHistoryRepo(t *testing.T) *history.SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        t.TempDir() + "/history.db",
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	return history.NewSQLiteRepository(db.DB)
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["connection"] != "connected" {
		t.Errorf("connection = %v, want connected", resp["connection"])
	}
}

// ─── State Endpoint Tests ──────────────────────────────────────────

func TestGetStateDefaults(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Mode != session.ModeManual {
		t.Errorf("mode = %q, want %q", resp.Mode, session.ModeManual)
	}
	if resp.TankLevel != 0 {
		t.Errorf("tank level = %v, want 0", resp.TankLevel)
	}
	if len(resp.Channels) != 4 {
		t.Fatalf("channels = %d, want 4", len(resp.Channels))
	}
	for ch, on := range resp.Channels {
		if on {
			t.Errorf("channel %s = on, want off", ch)
		}
	}
}

func TestGetStateReflectsInboundReports(t *testing.T) {
	srv, sess, _ := testServer(t)
	router := srv.buildRouter()

	if err := sess.HandleMessage("/level", []byte("73.5")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if err := sess.HandleMessage("/pump", []byte("on")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.TankLevel != 73.5 {
		t.Errorf("tank level = %v, want 73.5", resp.TankLevel)
	}
	if !resp.Channels[session.ChannelPump] {
		t.Error("pump = off, want on")
	}
}

// ─── Channel Command Tests ─────────────────────────────────────────

func TestSetChannel(t *testing.T) {
	srv, _, broker := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"on": true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/channels/power2", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Channels[session.ChannelPower2] {
		t.Error("power2 = off after command, want on")
	}

	pub := broker.lastPublish(t)
	if pub.topic != "/power2" || pub.payload != "on" {
		t.Errorf("publish = %q %q, want /power2 on", pub.topic, pub.payload)
	}
}

func TestSetChannelUnknown(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"on": true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/channels/boiler", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSetChannelRejectedInAutomaticMode(t *testing.T) {
	srv, sess, broker := testServer(t)
	router := srv.buildRouter()

	if err := sess.SetMode(true); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	before := len(broker.published)

	body := strings.NewReader(`{"on": true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/channels/power1", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var resp Error
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeConflict {
		t.Errorf("error code = %q, want %q", resp.Code, ErrCodeConflict)
	}

	broker.mu.Lock()
	after := len(broker.published)
	broker.mu.Unlock()
	if after != before {
		t.Errorf("publishes = %d, want %d (rejected command must not publish)", after, before)
	}
}

func TestSetChannelInvalidBody(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"on": "definitely"`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/channels/pump", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Mode Endpoint Tests ───────────────────────────────────────────

func TestSetMode(t *testing.T) {
	srv, _, broker := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"mode": "automatic"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/mode", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Mode != session.ModeAutomatic {
		t.Errorf("mode = %q, want %q", resp.Mode, session.ModeAutomatic)
	}

	pub := broker.lastPublish(t)
	if pub.topic != "/mode" || pub.payload != "automatic" {
		t.Errorf("publish = %q %q, want /mode automatic", pub.topic, pub.payload)
	}
}

func TestSetModeInvalid(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	body := strings.NewReader(`{"mode": "turbo"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/mode", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── History Endpoint Tests ────────────────────────────────────────

func TestHistoryWithoutRepository(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHistoryList(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.history = testHistoryRepo(t)
	router := srv.buildRouter()

	entry := &history.Entry{
		Kind:    history.KindChannel,
		Channel: "pump",
		Value:   "on",
		Source:  "operator",
	}
	if err := srv.history.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?kind=channel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var result history.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("total = %d, want 1", result.Total)
	}
	if result.Entries[0].Channel != "pump" {
		t.Errorf("channel = %q, want pump", result.Entries[0].Channel)
	}
}

func TestHistoryInvalidLimit(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.history = testHistoryRepo(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=lots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func TestWebSocketBroadcast(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// Subscribe to level changes; the response confirms registration.
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{"tank.level_changed"}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want %q", ack.Type, WSTypeResponse)
	}

	srv.BroadcastEvent(session.Event{
		Kind:   session.EventLevel,
		Level:  42.5,
		Source: session.SourceBroker,
	})

	//nolint:errcheck // Best-effort deadline; read error caught below
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt WSMessage
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", evt.Type, WSTypeEvent)
	}
	if evt.EventType != "tank.level_changed" {
		t.Errorf("event channel = %q, want tank.level_changed", evt.EventType)
	}
}

func TestWebSocketUnsubscribedClientReceivesNothing(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// Ping/pong round trip guarantees the client is registered before broadcast.
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var pong WSMessage
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}

	srv.BroadcastEvent(session.Event{Kind: session.EventMode, Mode: session.ModeAutomatic})

	//nolint:errcheck // Best-effort deadline; timeout is the expected outcome
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("received %+v, want read timeout (no subscription)", msg)
	}
}
