// Package events is the notification collaborator: after a successful
// mutation the caller publishes a structured entity-update event to Redis,
// where the websocket gateway picks it up and fans it out to subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"daytraderv1/internal/model"
)

// PubSub channel layout. Per-service channels let clients watch one service
// without receiving the whole firehose.
const (
	ChannelServices      = "events:services"
	ChannelTransactions  = "events:transactions"
	ChannelServicePrefix = "events:service:"

	latestTTL = 30 * time.Minute
)

// ServiceChannel returns the per-service event channel name.
func ServiceChannel(serviceID int64) string {
	return ChannelServicePrefix + strconv.FormatInt(serviceID, 10)
}

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes entity-update events to Redis.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks and the
// gateway's PubSub subscription.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[events] connected to redis at %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// ServiceEvent is the payload published for service updates.
type ServiceEvent struct {
	Action    string         `json:"action"`
	Service   *model.Service `json:"service"`
	Timestamp time.Time      `json:"timestamp"`
}

// TransactionEvent is the payload published for transaction updates.
type TransactionEvent struct {
	Action      string             `json:"action"`
	Transaction *model.Transaction `json:"transaction"`
	ServiceID   int64              `json:"service_id"`
	Timestamp   time.Time          `json:"timestamp"`
}

// PublishServiceUpdate emits a service_update event to the global services
// channel and the per-service channel, and caches the latest snapshot.
func (p *Publisher) PublishServiceUpdate(ctx context.Context, action string, svc *model.Service) error {
	payload, err := json.Marshal(ServiceEvent{
		Action:    action,
		Service:   svc,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal service event: %w", err)
	}
	data := string(payload)

	// SET latest + PUBLISH in one roundtrip
	pipe := p.client.Pipeline()
	pipe.Set(ctx, "service:latest:"+strconv.FormatInt(svc.ID, 10), data, latestTTL)
	pipe.Publish(ctx, ChannelServices, data)
	pipe.Publish(ctx, ServiceChannel(svc.ID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish service event: %w", err)
	}
	return nil
}

// PublishTransactionUpdate emits a transaction_update event to the global
// transactions channel and the owning service's channel.
func (p *Publisher) PublishTransactionUpdate(ctx context.Context, action string, txn *model.Transaction) error {
	payload, err := json.Marshal(TransactionEvent{
		Action:      action,
		Transaction: txn,
		ServiceID:   txn.ServiceID,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal transaction event: %w", err)
	}
	data := string(payload)

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, ChannelTransactions, data)
	pipe.Publish(ctx, ServiceChannel(txn.ServiceID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish transaction event: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
