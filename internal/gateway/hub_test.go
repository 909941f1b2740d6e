package gateway

import (
	"encoding/json"
	"testing"
)

func TestRoomForChannel(t *testing.T) {
	cases := []struct {
		channel string
		want    string
	}{
		{"events:services", RoomServices},
		{"events:transactions", RoomTransactions},
		{"events:service:42", "service_42"},
		{"events:unknown", ""},
		{"other:service:42", ""},
	}
	for _, tc := range cases {
		if got := roomForChannel(tc.channel); got != tc.want {
			t.Errorf("roomForChannel(%q) = %q, want %q", tc.channel, got, tc.want)
		}
	}
}

func TestServiceRoom(t *testing.T) {
	if got := ServiceRoom(7); got != "service_7" {
		t.Errorf("ServiceRoom(7) = %q", got)
	}
}

// testClient wires a Client into the hub without a real connection.
// broadcast only touches rooms and the send channel.
func testClient(h *Hub, rooms ...string) *Client {
	c := &Client{
		send:  make(chan []byte, 16),
		hub:   h,
		rooms: make(map[string]bool),
	}
	for _, r := range rooms {
		c.rooms[r] = true
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func TestBroadcast_RoomFiltering(t *testing.T) {
	h := NewHub(nil)
	global := testClient(h, RoomServices, RoomTransactions)
	watcher := testClient(h, ServiceRoom(5))

	h.broadcast("events:service:5", []byte(`{"action":"service_update"}`))

	if len(global.send) != 0 {
		t.Error("global client should not receive per-service events")
	}
	if len(watcher.send) != 1 {
		t.Fatalf("watcher should receive 1 message, got %d", len(watcher.send))
	}

	var envelope struct {
		Room string          `json:"room"`
		Data json.RawMessage `json:"data"`
		TS   string          `json:"ts"`
	}
	if err := json.Unmarshal(<-watcher.send, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Room != "service_5" {
		t.Errorf("room: got %q", envelope.Room)
	}
	if string(envelope.Data) != `{"action":"service_update"}` {
		t.Errorf("data: got %s", envelope.Data)
	}
	if envelope.TS == "" {
		t.Error("envelope should carry a timestamp")
	}
}

func TestBroadcast_UnknownChannelDropped(t *testing.T) {
	h := NewHub(nil)
	c := testClient(h, RoomServices)

	h.broadcast("events:unknown", []byte(`{}`))
	if len(c.send) != 0 {
		t.Error("unknown channels should not reach clients")
	}
}

func TestBroadcast_SlowClientSkipped(t *testing.T) {
	h := NewHub(nil)
	c := testClient(h, RoomServices)

	// Fill the buffer so the next send would block.
	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("x")
	}
	h.broadcast("events:services", []byte(`{"action":"service_update"}`))

	if len(c.send) != cap(c.send) {
		t.Error("slow client should be skipped, not blocked on")
	}
}

func TestBroadcast_CachesLatestPerRoom(t *testing.T) {
	h := NewHub(nil)
	h.broadcast("events:services", []byte(`{"n":1}`))
	h.broadcast("events:services", []byte(`{"n":2}`))

	h.mu.RLock()
	entry, ok := h.latest[RoomServices]
	h.mu.RUnlock()
	if !ok {
		t.Fatal("latest entry should be cached")
	}
	if string(entry.Data) != `{"n":2}` {
		t.Errorf("latest should be the most recent payload, got %s", entry.Data)
	}
}

func TestRemoveClient_ClosesOnce(t *testing.T) {
	h := NewHub(nil)
	c := testClient(h)

	h.RemoveClient(c)
	h.RemoveClient(c) // second call must not panic on a closed channel

	if h.ClientCount() != 0 {
		t.Errorf("client count: got %d", h.ClientCount())
	}
}
