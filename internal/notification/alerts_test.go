package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/execution"
)

func TestTradeAlert_Buy(t *testing.T) {
	res := &execution.Result{
		Success:        true,
		ServiceID:      3,
		StockSymbol:    "AAPL",
		Action:         execution.ActionBuy,
		SharesBought:   50,
		TotalCost:      decimal.NewFromInt(500),
		CurrentBalance: decimal.NewFromInt(500),
		Message:        "Bought 50 shares at $10.00",
	}

	alert, ok := TradeAlert(res)
	if !ok {
		t.Fatal("buy result should produce an alert")
	}
	if alert.Level != AlertInfo {
		t.Errorf("level: got %s", alert.Level)
	}
	if alert.Title != "BUY AAPL" {
		t.Errorf("title: got %q", alert.Title)
	}
	if !strings.Contains(alert.Message, "Bought 50 shares") || !strings.Contains(alert.Message, "$500.00") {
		t.Errorf("message: got %q", alert.Message)
	}
	if alert.Trade == nil || alert.Trade.Shares != 50 ||
		alert.Trade.Action != execution.ActionBuy || alert.Trade.ServiceID != 3 {
		t.Errorf("trade detail: %+v", alert.Trade)
	}
}

func TestTradeAlert_Failure(t *testing.T) {
	res := &execution.Result{
		Success:   false,
		ServiceID: 3,
		Message:   "Insufficient funds. Required: $12.00, Available: $5.00",
	}

	alert, ok := TradeAlert(res)
	if !ok {
		t.Fatal("failed result should produce an alert")
	}
	if alert.Level != AlertWarning {
		t.Errorf("level: got %s", alert.Level)
	}
	if !strings.Contains(alert.Message, "Insufficient funds") {
		t.Errorf("message: got %q", alert.Message)
	}
	if alert.Trade != nil {
		t.Errorf("failures carry no fill, got %+v", alert.Trade)
	}
}

func TestTradeAlert_NoActionSkipped(t *testing.T) {
	res := &execution.Result{
		Success: true,
		Action:  execution.ActionNone,
		Message: "Buy conditions not met, no action taken",
	}
	if _, ok := TradeAlert(res); ok {
		t.Error("no-action runs should not alert")
	}
	if _, ok := TradeAlert(nil); ok {
		t.Error("nil result should not alert")
	}
}

type failingNotifier struct{ err error }

func (f *failingNotifier) Send(context.Context, Alert) error { return f.err }

type recordingNotifier struct{ sent []Alert }

func (r *recordingNotifier) Send(_ context.Context, a Alert) error {
	r.sent = append(r.sent, a)
	return nil
}

func TestMultiNotifier_ContinuesPastFailure(t *testing.T) {
	boom := errors.New("telegram down")
	rec := &recordingNotifier{}
	m := NewMultiNotifier(&failingNotifier{err: boom}, rec)

	err := m.Send(context.Background(), Alert{Level: AlertInfo, Title: "t"})
	if !errors.Is(err, boom) {
		t.Errorf("first failure should surface, got %v", err)
	}
	if len(rec.sent) != 1 {
		t.Errorf("later backends should still receive the alert, got %d", len(rec.sent))
	}
}
