package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/safesignal/sosclient/pkg/logger"
)

// Event types pushed to the UI shell.
const (
	EventWelcome      = "welcome"
	EventSurfaceState = "surface_state"
	EventVerdict      = "verdict"
	EventNotice       = "notice"
	EventNavigate     = "navigate"
	EventAlerts       = "alerts"
	EventSignedOut    = "signed_out"
)

const roomAll = "all"

type Event struct {
	Type      string                 `json:"type"`
	Surface   string                 `json:"surface,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Mirror receives a copy of every event, e.g. a redis channel.
type Mirror interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex

	mirror        Mirror
	mirrorChannel string
	logger        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     log,
	}
}

// WithMirror republishes every event on channel.
func (h *Hub) WithMirror(m Mirror, channel string) *Hub {
	h.mirror = m
	h.mirrorChannel = channel
	return h
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Publish queues an event for every client subscribed to its surface. It
// never blocks the caller; a full queue drops the event.
func (h *Hub) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = getCurrentTimestamp()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("type", event.Type).Warn("WebSocket broadcast queue full, dropping event")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.joinRoom(client, roomAll)
	h.logger.WithField("client_id", client.ID).Debug("WebSocket client registered")

	welcome := Event{
		Type:      EventWelcome,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message":   "Connected successfully",
			"client_id": client.ID,
		},
	}
	h.sendToClient(client, welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.logger.WithField("client_id", client.ID).Debug("WebSocket client unregistered")
}

func (h *Hub) deliver(event Event) {
	room := roomAll
	if event.Surface != "" {
		room = surfaceRoom(event.Surface)
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket event")
		return
	}

	h.mutex.Lock()
	targets := h.rooms[room]
	if event.Surface != "" {
		// Clients that did not pick a surface get everything.
		targets = h.unionLocked(targets, h.unsubscribedLocked())
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			h.dropLocked(client)
		}
	}
	h.mutex.Unlock()

	if h.mirror != nil && h.mirrorChannel != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := h.mirror.Publish(ctx, h.mirrorChannel, event); err != nil {
			h.logger.WithError(err).Warn("Failed to mirror websocket event")
		}
		cancel()
	}
}

func (h *Hub) unsubscribedLocked() map[*Client]bool {
	out := make(map[*Client]bool)
	for client := range h.clients {
		if len(client.rooms) == 1 {
			out[client] = true
		}
	}
	return out
}

func (h *Hub) unionLocked(a, b map[*Client]bool) map[*Client]bool {
	out := make(map[*Client]bool, len(a)+len(b))
	for c := range a {
		out[c] = true
	}
	for c := range b {
		out[c] = true
	}
	return out
}

func (h *Hub) sendToClient(client *Client, event Event) {
	data, _ := json.Marshal(event)
	select {
	case client.send <- data:
	default:
		h.dropLocked(client)
	}
}

func (h *Hub) Subscribe(client *Client, surface string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, surfaceRoom(surface))
}

func (h *Hub) Unsubscribe(client *Client, surface string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	roomID := surfaceRoom(surface)
	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		h.dropLocked(client)
	}
}

func surfaceRoom(surface string) string {
	return "surface_" + surface
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
