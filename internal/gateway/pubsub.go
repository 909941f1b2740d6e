package gateway

import (
	"context"
	"log"

	"daytraderv1/internal/events"
)

// PubSubRouter manages Redis PubSub subscriptions and routes messages
// to the hub for fan-out to WebSocket clients.
type PubSubRouter struct {
	hub *Hub
}

// NewPubSubRouter creates a PubSubRouter backed by the given Hub.
func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// Run subscribes to the global event channels and routes messages.
// Blocks until ctx is cancelled.
func (r *PubSubRouter) Run(ctx context.Context) {
	pubsub := r.hub.Rdb.Subscribe(ctx, events.ChannelServices, events.ChannelTransactions)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s and %s", events.ChannelServices, events.ChannelTransactions)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

// RunPattern subscribes to the wildcard per-service channels so clients can
// watch one service without the firehose. Blocks until ctx is cancelled.
func (r *PubSubRouter) RunPattern(ctx context.Context) {
	pubsub := r.hub.Rdb.PSubscribe(ctx, events.ChannelServicePrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
