package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

type Client struct {
	ID    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool

	pongWait   time.Duration
	pingPeriod time.Duration
}

// clientMessage is what the shell may send: surface subscriptions.
type clientMessage struct {
	Type    string `json:"type"`
	Surface string `json:"surface"`
}

func NewClient(hub *Hub, conn *websocket.Conn, pingPeriod, pongWait time.Duration) *Client {
	return &Client{
		ID:         uuid.NewString(),
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		rooms:      make(map[string]bool),
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("WebSocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.WithError(err).Debug("Ignoring malformed client message")
		return
	}

	switch msg.Type {
	case "subscribe":
		if msg.Surface != "" {
			c.hub.Subscribe(c, msg.Surface)
		}

	case "unsubscribe":
		if msg.Surface != "" {
			c.hub.Unsubscribe(c, msg.Surface)
		}
	}
}
