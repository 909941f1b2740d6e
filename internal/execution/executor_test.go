package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/model"
	"daytraderv1/internal/strategy"
)

// ────────────────────────────────────────────────────────────
// In-memory fakes for the store and price provider ports
// ────────────────────────────────────────────────────────────

type fakeStore struct {
	services     map[int64]model.Service
	transactions map[int64]model.Transaction
	nextTxnID    int64

	failUpdateService bool
}

func newFakeStore(svcs ...model.Service) *fakeStore {
	s := &fakeStore{
		services:     make(map[int64]model.Service),
		transactions: make(map[int64]model.Transaction),
		nextTxnID:    1,
	}
	for _, svc := range svcs {
		s.services[svc.ID] = svc
	}
	return s
}

func (s *fakeStore) GetService(_ context.Context, id int64) (*model.Service, error) {
	svc, ok := s.services[id]
	if !ok {
		return nil, model.ErrServiceNotFound
	}
	cp := svc
	return &cp, nil
}

func (s *fakeStore) ListActiveServices(_ context.Context) ([]model.Service, error) {
	var out []model.Service
	for _, svc := range s.services {
		if svc.IsActive && svc.State == model.StateActive {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *fakeStore) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	txn, ok := s.transactions[id]
	if !ok {
		return nil, model.ErrTransactionNotFound
	}
	cp := txn
	return &cp, nil
}

// fakeTx buffers mutations; WithTx commits them only when fn succeeds.
type fakeTx struct {
	store    *fakeStore
	services map[int64]model.Service
	txns     map[int64]model.Transaction
}

func (s *fakeStore) WithTx(_ context.Context, fn func(tx model.StoreTx) error) error {
	tx := &fakeTx{
		store:    s,
		services: make(map[int64]model.Service),
		txns:     make(map[int64]model.Transaction),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, svc := range tx.services {
		s.services[id] = svc
	}
	for id, txn := range tx.txns {
		s.transactions[id] = txn
	}
	return nil
}

func (tx *fakeTx) UpdateService(svc *model.Service) error {
	if tx.store.failUpdateService {
		return errors.New("disk full")
	}
	tx.services[svc.ID] = *svc
	return nil
}

func (tx *fakeTx) InsertTransaction(txn *model.Transaction) error {
	txn.ID = tx.store.nextTxnID
	tx.store.nextTxnID++
	tx.txns[txn.ID] = *txn
	return nil
}

func (tx *fakeTx) UpdateTransaction(txn *model.Transaction) error {
	tx.txns[txn.ID] = *txn
	return nil
}

func (tx *fakeTx) OpenTransactions(serviceID int64) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, txn := range tx.store.transactions {
		if txn.ServiceID == serviceID && txn.State == model.TxnOpen {
			out = append(out, txn)
		}
	}
	return out, nil
}

type fakePrices struct {
	closes map[string][]float64
}

func (p *fakePrices) RecentCloses(_ context.Context, symbol string, _ int) ([]float64, error) {
	closes, ok := p.closes[symbol]
	if !ok {
		return nil, model.ErrSymbolNotFound
	}
	return closes, nil
}

// ────────────────────────────────────────────────────────────
// Series and service builders
// ────────────────────────────────────────────────────────────

// fallingTo builds n monotonically falling closes ending at last, so RSI is 0
// (oversold) and the latest price is known exactly.
func fallingTo(n int, last float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = last + float64(n-1-i)
	}
	return s
}

// risingTo builds n monotonically rising closes ending at last (RSI 100).
func risingTo(n int, last float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = last - 0.5*float64(n-1-i)
	}
	return s
}

func activeService(mode model.TradingMode) model.Service {
	return model.Service{
		ID:                7,
		StockSymbol:       "AAPL",
		State:             model.StateActive,
		Mode:              mode,
		IsActive:          true,
		InitialBalance:    decimal.NewFromInt(1000),
		CurrentBalance:    decimal.NewFromInt(1000),
		MinimumBalance:    decimal.NewFromInt(500),
		AllocationPercent: 50,
		BuyThreshold:      3.0,
		SellThreshold:     2.0,
	}
}

func decEq(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

// ────────────────────────────────────────────────────────────
// ExecuteStrategy
// ────────────────────────────────────────────────────────────

func TestExecuteStrategy_HoldMode(t *testing.T) {
	store := newFakeStore(activeService(model.ModeHold))
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Action != ActionNone {
		t.Errorf("HOLD should succeed with action none, got success=%v action=%q", res.Success, res.Action)
	}
	if !strings.Contains(res.Message, "HOLD") {
		t.Errorf("message should mention HOLD, got %q", res.Message)
	}

	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "balance untouched", after.CurrentBalance, "1000")
	if after.CurrentShares != 0 {
		t.Errorf("shares untouched: got %d", after.CurrentShares)
	}
}

func TestExecuteStrategy_BuySizing(t *testing.T) {
	// Balance 1000, minimum 500, allocation 50%, oversold signal, price 10:
	// shares = min(floor(500/10), floor(1000/10)) = 50, new balance 500.
	store := newFakeStore(activeService(model.ModeBuy))
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("buy should succeed: %s", res.Message)
	}
	if res.Action != ActionBuy || res.SharesBought != 50 {
		t.Errorf("got action=%q shares=%d, want buy/50", res.Action, res.SharesBought)
	}
	decEq(t, "total cost", res.TotalCost, "500")
	decEq(t, "result balance", res.CurrentBalance, "500")
	if res.Message != "Bought 50 shares at $10.00" {
		t.Errorf("message: got %q", res.Message)
	}
	if res.TransactionID == 0 {
		t.Error("transaction id should be set")
	}

	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "stored balance", after.CurrentBalance, "500")
	if after.CurrentShares != 50 || after.BuyCount != 1 {
		t.Errorf("stored shares=%d buyCount=%d, want 50/1", after.CurrentShares, after.BuyCount)
	}

	txn, err := store.GetTransaction(context.Background(), res.TransactionID)
	if err != nil {
		t.Fatal(err)
	}
	if txn.State != model.TxnOpen || txn.Shares != 50 {
		t.Errorf("stored transaction: state=%s shares=%d", txn.State, txn.Shares)
	}
	decEq(t, "purchase price", txn.PurchasePrice, "10")
}

func TestExecuteStrategy_BuyInvariant(t *testing.T) {
	// Whatever the sizing, cost never exceeds the old balance and
	// new_balance = old_balance - shares*price.
	svc := activeService(model.ModeBuy)
	svc.CurrentBalance = decimal.NewFromInt(137)
	svc.MinimumBalance = decimal.NewFromInt(10)
	svc.AllocationPercent = 80
	store := newFakeStore(svc)
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 7)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Action != ActionBuy {
		t.Fatalf("expected buy, got %q (%s)", res.Action, res.Message)
	}

	cost := decimal.NewFromFloat(7).Mul(decimal.NewFromInt(res.SharesBought))
	if cost.GreaterThan(decimal.NewFromInt(137)) {
		t.Errorf("cost %s exceeds old balance", cost)
	}
	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "new balance", after.CurrentBalance, decimal.NewFromInt(137).Sub(cost).String())
	if after.CurrentShares != res.SharesBought {
		t.Errorf("shares: got %d, want %d", after.CurrentShares, res.SharesBought)
	}
}

func TestExecuteStrategy_BuyConditionsNotMet(t *testing.T) {
	// Rising series → RSI 100, no oversold trigger → no action.
	store := newFakeStore(activeService(model.ModeBuy))
	prices := &fakePrices{closes: map[string][]float64{"AAPL": risingTo(15, 100)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Action != ActionNone {
		t.Errorf("got success=%v action=%q, want success with none", res.Success, res.Action)
	}
	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "balance untouched", after.CurrentBalance, "1000")
}

func TestExecuteStrategy_InsufficientFunds(t *testing.T) {
	// Balance 5, price 10: minimum one share is unaffordable.
	svc := activeService(model.ModeBuy)
	svc.CurrentBalance = decimal.NewFromInt(5)
	svc.MinimumBalance = decimal.NewFromInt(1)
	store := newFakeStore(svc)
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("buy with unaffordable minimum share should fail")
	}
	if res.Message != "Insufficient funds. Required: $10.00, Available: $5.00" {
		t.Errorf("message: got %q", res.Message)
	}
	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "balance untouched", after.CurrentBalance, "5")
	if len(store.transactions) != 0 {
		t.Error("no transaction should be recorded")
	}
}

func TestExecuteStrategy_FullPositionSell(t *testing.T) {
	svc := activeService(model.ModeSell)
	svc.CurrentBalance = decimal.NewFromInt(500)
	svc.CurrentShares = 50
	store := newFakeStore(svc)
	store.transactions[1] = model.Transaction{
		ID: 1, ServiceID: 7, StockSymbol: "AAPL", Shares: 50,
		State: model.TxnOpen, PurchasePrice: decimal.NewFromInt(10),
	}
	store.nextTxnID = 2
	// Rising series ending at 12 → RSI 100 → overbought → sell.
	prices := &fakePrices{closes: map[string][]float64{"AAPL": risingTo(15, 12)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Action != ActionSell {
		t.Fatalf("expected sell, got %q (%s)", res.Action, res.Message)
	}
	if res.SharesSold != 50 {
		t.Errorf("shares sold: got %d, want 50", res.SharesSold)
	}
	decEq(t, "revenue", res.TotalRevenue, "600")
	if res.Message != "Sold 50 shares at $12.00" {
		t.Errorf("message: got %q", res.Message)
	}

	after, _ := store.GetService(context.Background(), 7)
	if after.CurrentShares != 0 {
		t.Errorf("full-position sell should zero shares, got %d", after.CurrentShares)
	}
	decEq(t, "new balance", after.CurrentBalance, "1100") // 500 + 50*12
	if after.SellCount != 1 {
		t.Errorf("sell count: got %d", after.SellCount)
	}
	decEq(t, "realized gain", after.TotalGainLoss, "100") // (12-10)*50

	txn, _ := store.GetTransaction(context.Background(), 1)
	if txn.State != model.TxnClosed || txn.SalePrice == nil || txn.GainLoss == nil {
		t.Fatalf("open transaction should be closed with sale fields, got %+v", txn)
	}
	decEq(t, "txn gain", *txn.GainLoss, "100")
}

func TestExecuteStrategy_SellWithNoShares(t *testing.T) {
	svc := activeService(model.ModeSell)
	svc.CurrentShares = 0
	store := newFakeStore(svc)
	prices := &fakePrices{closes: map[string][]float64{"AAPL": risingTo(15, 12)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Action != ActionNone {
		t.Errorf("no shares: got success=%v action=%q, want success/none", res.Success, res.Action)
	}
	if res.Message != "Sell conditions not met, no action taken" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestExecuteStrategy_ValidationFailures(t *testing.T) {
	paused := activeService(model.ModeBuy)
	paused.State = model.StatePaused
	short := activeService(model.ModeBuy)
	short.ID = 8
	short.StockSymbol = "SHRT"
	unknown := activeService(model.ModeBuy)
	unknown.ID = 9
	unknown.StockSymbol = "NOPE"

	store := newFakeStore(paused, short, unknown)
	prices := &fakePrices{closes: map[string][]float64{
		"AAPL": fallingTo(15, 10),
		"SHRT": {10, 11, 12},
	}}
	exec := New(store, prices)
	ctx := context.Background()

	res, _ := exec.ExecuteStrategy(ctx, 7)
	if res.Success || res.Message != "Service is not active (state: PAUSED, is_active: true)" {
		t.Errorf("paused service: got %q", res.Message)
	}

	res, _ = exec.ExecuteStrategy(ctx, 8)
	if res.Success || res.Message != "Insufficient price data for analysis" {
		t.Errorf("short history: got %q", res.Message)
	}

	res, _ = exec.ExecuteStrategy(ctx, 9)
	if res.Success || res.Message != "Stock NOPE not found" {
		t.Errorf("unknown symbol: got %q", res.Message)
	}

	res, _ = exec.ExecuteStrategy(ctx, 404)
	if res.Success || res.Message != "Service 404 not found" {
		t.Errorf("unknown service: got %q", res.Message)
	}
}

func TestExecuteStrategy_MutationRollsBack(t *testing.T) {
	store := newFakeStore(activeService(model.ModeBuy))
	store.failUpdateService = true
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	res, err := New(store, prices).ExecuteStrategy(context.Background(), 7)
	if err == nil {
		t.Fatal("unexpected store failure should propagate")
	}
	if res == nil || res.Success {
		t.Fatal("result should still report the failure")
	}

	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "balance rolled back", after.CurrentBalance, "1000")
	if after.CurrentShares != 0 || after.BuyCount != 0 {
		t.Error("partial mutations must not be visible after rollback")
	}
	if len(store.transactions) != 0 {
		t.Error("transaction insert must roll back with the service update")
	}
}

// ────────────────────────────────────────────────────────────
// Condition previews
// ────────────────────────────────────────────────────────────

func TestCheckBuyCondition_Met(t *testing.T) {
	store := newFakeStore(activeService(model.ModeBuy))
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	dec, err := New(store, prices).CheckBuyCondition(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !dec.ShouldProceed || dec.NextAction != strategy.ActionBuy {
		t.Errorf("got proceed=%v action=%q", dec.ShouldProceed, dec.NextAction)
	}
	if dec.Reason != "Buy conditions met" {
		t.Errorf("reason: got %q", dec.Reason)
	}
	if dec.Details.PriceAnalysis == nil || dec.Details.CurrentPrice != 10 {
		t.Error("details should carry the analysis and current price")
	}

	// Preview must not mutate.
	after, _ := store.GetService(context.Background(), 7)
	decEq(t, "balance untouched", after.CurrentBalance, "1000")
}

func TestCheckSellCondition_Wait(t *testing.T) {
	svc := activeService(model.ModeSell)
	svc.CurrentShares = 10
	store := newFakeStore(svc)
	// Falling 15-point series: RSI oversold, no MA(20) so no bearish
	// crossover, and nothing says sell.
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	dec, err := New(store, prices).CheckSellCondition(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if dec.ShouldProceed || dec.NextAction != strategy.ActionWait {
		t.Errorf("got proceed=%v action=%q, want wait", dec.ShouldProceed, dec.NextAction)
	}
	if dec.Reason != "Sell conditions not met" {
		t.Errorf("reason: got %q", dec.Reason)
	}
}

func TestCheckBuyCondition_ValidationFailure(t *testing.T) {
	svc := activeService(model.ModeBuy)
	svc.IsActive = false
	store := newFakeStore(svc)
	prices := &fakePrices{closes: map[string][]float64{"AAPL": fallingTo(15, 10)}}

	dec, err := New(store, prices).CheckBuyCondition(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if dec.ShouldProceed || dec.NextAction != strategy.ActionWait {
		t.Error("validation failure should yield a wait decision")
	}
	want := fmt.Sprintf("Service is not active (state: %s, is_active: %v)", model.StateActive, false)
	if dec.Reason != want {
		t.Errorf("reason: got %q, want %q", dec.Reason, want)
	}
}
