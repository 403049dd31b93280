package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket timeouts per the Gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// clientMessage is what browsers send: currently only refresh requests.
type clientMessage struct {
	Type string `json:"type"`
}

// client is one WebSocket connection.
type client struct {
	server    *Server
	conn      *websocket.Conn
	send      chan *Graph
	id        string
	closeOnce sync.Once
}

// readPump consumes messages from the browser until the connection drops.
func (c *client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.server.log.Warnw("WebSocket read error", "clientId", c.id, "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.server.log.Warnw("Malformed client message", "clientId", c.id, "error", err)
			continue
		}

		switch msg.Type {
		case "refresh":
			c.server.requestRefresh()
		case "ping":
			// Deadline already extended by the pong handler
		default:
			c.server.log.Debugw("Unknown message type", "type", msg.Type, "clientId", c.id)
		}
	}
}

// writePump pushes graph updates and keepalive pings to the browser.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			return
		case g, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(g); err != nil {
				c.server.log.Warnw("Graph write error", "clientId", c.id, "error", err)
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

// close safely closes the send channel once.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
