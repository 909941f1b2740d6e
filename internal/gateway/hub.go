// Package gateway fans entity-update events out to WebSocket clients.
// Events arrive over Redis PubSub; clients join rooms ("services",
// "transactions", "service_{id}") and receive only what they asked for.
package gateway

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"daytraderv1/internal/events"
)

// Room names mirror the event channel layout.
const (
	RoomServices     = "services"
	RoomTransactions = "transactions"
	roomServicePre   = "service_"
)

// ServiceRoom returns the per-service room name.
func ServiceRoom(serviceID int64) string {
	return roomServicePre + strconv.FormatInt(serviceID, 10)
}

// Hub manages WebSocket clients and the Redis PubSub fan-out.
type Hub struct {
	Rdb *goredis.Client

	// ClientGauge, when set, tracks the connected client count.
	ClientGauge prometheus.Gauge

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry

	Router *PubSubRouter
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
}

// NewHub creates a Hub reading events from the given Redis client.
func NewHub(rdb *goredis.Client) *Hub {
	h := &Hub{
		Rdb:     rdb,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
	h.Router = NewPubSubRouter(h)
	return h
}

// Register upgrades a connection into a managed client. New clients start
// in the global rooms; SUBSCRIBE messages narrow or widen that.
func (h *Hub) Register(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
		rooms: map[string]bool{
			RoomServices:     true,
			RoomTransactions: true,
		},
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.ClientGauge != nil {
		h.ClientGauge.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient drops a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if h.ClientGauge != nil {
		h.ClientGauge.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// roomForChannel maps a Redis event channel to its client-facing room.
// Unknown channels yield "".
func roomForChannel(channel string) string {
	switch channel {
	case events.ChannelServices:
		return RoomServices
	case events.ChannelTransactions:
		return RoomTransactions
	}
	if id, ok := strings.CutPrefix(channel, events.ChannelServicePrefix); ok {
		return roomServicePre + id
	}
	return ""
}

// broadcast delivers one event to every client in the room. Slow clients
// get dropped messages rather than blocking the fan-out.
func (h *Hub) broadcast(channel string, data []byte) {
	room := roomForChannel(channel)
	if room == "" {
		return
	}

	now := time.Now().UTC()
	envelope, err := json.Marshal(map[string]interface{}{
		"room": room,
		"data": json.RawMessage(data),
		"ts":   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	h.latest[room] = latestEntry{Data: data, TS: now}
	for client := range h.clients {
		if !client.inRoom(room) {
			continue
		}
		select {
		case client.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()
}
