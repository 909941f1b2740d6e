// Package notification provides alert delivery to external channels
// (Telegram, Discord, webhooks, etc.) for trading events.
package notification

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Trade carries the structured fields of a fill, for backends that render
// more than plain text.
type Trade struct {
	ServiceID     int64           `json:"service_id"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	Symbol        string          `json:"symbol"`
	Action        string          `json:"action"`
	Shares        int64           `json:"shares"`
	Price         float64         `json:"price"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// Alert represents a notification to be sent. Trade is set for fills and
// nil for everything else.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Trade   *Trade     `json:"trade,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// MultiNotifier fans an alert out to several backends. Delivery failures
// are logged per backend; the alert still reaches the rest.
type MultiNotifier struct {
	backends []Notifier
}

// NewMultiNotifier creates a MultiNotifier over the given backends.
func NewMultiNotifier(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (m *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			log.Printf("[notify] delivery failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
