package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	roomMu sync.RWMutex
	rooms  map[string]bool
}

func (c *Client) inRoom(room string) bool {
	c.roomMu.RLock()
	defer c.roomMu.RUnlock()
	return c.rooms[room]
}

// sendInitialState pushes the last known event per joined room so a fresh
// client does not render empty until the next update arrives.
func (c *Client) sendInitialState() {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	for room, entry := range c.hub.latest {
		if !c.inRoom(room) {
			continue
		}
		envelope, _ := json.Marshal(map[string]interface{}{
			"room":    room,
			"data":    json.RawMessage(entry.Data),
			"ts":      entry.TS.Format(time.RFC3339Nano),
			"initial": true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: use NextWriter to batch queued messages
			// into a single WebSocket frame with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			// Drain any queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type  string   `json:"type"`
			Rooms []string `json:"rooms"`
			Ping  int64    `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "SUBSCRIBE":
			c.joinRooms(base.Rooms)
		case "UNSUBSCRIBE":
			c.leaveRooms(base.Rooms)
		default:
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

func (c *Client) joinRooms(rooms []string) {
	c.roomMu.Lock()
	for _, room := range rooms {
		c.rooms[room] = true
	}
	c.roomMu.Unlock()
	log.Printf("[gateway] client subscribed: rooms=%v", rooms)

	// Joined rooms get their last known event right away.
	c.sendInitialState()
}

func (c *Client) leaveRooms(rooms []string) {
	c.roomMu.Lock()
	for _, room := range rooms {
		delete(c.rooms, room)
	}
	c.roomMu.Unlock()
	log.Printf("[gateway] client unsubscribed: rooms=%v", rooms)
}
