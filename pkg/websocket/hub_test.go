package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesignal/sosclient/internal/config"
	"github.com/safesignal/sosclient/pkg/logger"
)

type recordingMirror struct {
	mu     sync.Mutex
	events []interface{}
}

func (m *recordingMirror) Publish(ctx context.Context, channel string, message interface{}) error {
	m.mu.Lock()
	m.events = append(m.events, message)
	m.mu.Unlock()
	return nil
}

func (m *recordingMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func startServer(t *testing.T) (*Hub, string, *recordingMirror) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mirror := &recordingMirror{}
	hub := NewHub(logger.Discard()).WithMirror(mirror, "safesignal:events")
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	cfg := &config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingInterval:    time.Minute,
		PongTimeout:     2 * time.Minute,
		AllowedOrigins:  []string{"*"},
	}
	r := gin.New()
	r.GET("/ws", NewHandler(hub, cfg).HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", mirror
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, EventWelcome, welcome.Type)
	return conn
}

func TestHubDeliversToSubscribedSurface(t *testing.T) {
	hub, url, mirror := startServer(t)

	home := dial(t, url+"?surface=home")
	contacts := dial(t, url+"?surface=contacts")

	hub.Publish(Event{Type: EventVerdict, Surface: "home", Data: map[string]interface{}{"verdict": "hold_confirmed"}})
	hub.Publish(Event{Type: EventSignedOut})

	var got Event
	home.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, home.ReadJSON(&got))
	assert.Equal(t, EventVerdict, got.Type)
	assert.Equal(t, "hold_confirmed", got.Data["verdict"])
	assert.NotZero(t, got.Timestamp)

	// The contacts client skips the home event and sees the broadcast.
	contacts.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, contacts.ReadJSON(&got))
	assert.Equal(t, EventSignedOut, got.Type)

	assert.Eventually(t, func() bool { return mirror.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubUnsubscribedClientGetsEverything(t *testing.T) {
	hub, url, _ := startServer(t)
	conn := dial(t, url)

	hub.Publish(Event{Type: EventNotice, Surface: "home", Data: map[string]interface{}{"title": "Emergency Alert Sent"}})

	var got Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "Emergency Alert Sent", got.Data["title"])
}

func TestHubSubscribeMessage(t *testing.T) {
	hub, url, _ := startServer(t)
	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "surface": "contacts"}))

	// Wait until the subscription is recorded before publishing.
	assert.Eventually(t, func() bool {
		hub.mutex.RLock()
		defer hub.mutex.RUnlock()
		return len(hub.rooms[surfaceRoom("contacts")]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: EventNotice, Surface: "home"})
	hub.Publish(Event{Type: EventNotice, Surface: "contacts"})

	var got Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "contacts", got.Surface)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:8081"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:8081")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
