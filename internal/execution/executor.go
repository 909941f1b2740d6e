// Package execution runs the trading strategy against one service at a time:
// it validates preconditions, builds the price analysis, evaluates the
// decision rules, and applies balance/position/transaction mutations inside
// a single all-or-nothing store transaction.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/analysis"
	"daytraderv1/internal/model"
	"daytraderv1/internal/strategy"
)

// DefaultLookbackDays is the price-history window fed to the analysis.
const DefaultLookbackDays = 90

// Action tags the executed branch in a Result.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionNone = "none"
)

// Result is the structured outcome of one strategy execution. Every call
// produces one, success or not; business failures never surface as errors.
type Result struct {
	Success        bool              `json:"success"`
	ServiceID      int64             `json:"service_id"`
	StockSymbol    string            `json:"stock_symbol,omitempty"`
	CurrentPrice   float64           `json:"current_price,omitempty"`
	CurrentBalance decimal.Decimal   `json:"current_balance"`
	CurrentShares  int64             `json:"current_shares"`
	Mode           model.TradingMode `json:"mode,omitempty"`
	Signals        map[string]string `json:"signals,omitempty"`
	Action         string            `json:"action,omitempty"`
	SharesBought   int64             `json:"shares_bought,omitempty"`
	SharesSold     int64             `json:"shares_sold,omitempty"`
	TotalCost      decimal.Decimal   `json:"total_cost"`
	TotalRevenue   decimal.Decimal   `json:"total_revenue"`
	TransactionID  int64             `json:"transaction_id,omitempty"`
	Message        string            `json:"message"`
}

// Executor orchestrates strategy runs. It performs no locking itself: the
// caller must guarantee at most one in-flight execution per service.
type Executor struct {
	store        model.ServiceStore
	prices       model.PriceProvider
	lookbackDays int
}

// New creates a strategy executor backed by the given store and price source.
func New(store model.ServiceStore, prices model.PriceProvider) *Executor {
	return &Executor{
		store:        store,
		prices:       prices,
		lookbackDays: DefaultLookbackDays,
	}
}

// preconditions is the shared outcome of validation steps 1-3: loaded
// service, analysis snapshot, and current price, or a ready failure Result.
type preconditions struct {
	svc   *model.Service
	snap  *analysis.Snapshot
	price float64
}

func failure(svc *model.Service, serviceID int64, msg string) *Result {
	r := &Result{Success: false, ServiceID: serviceID, Message: msg}
	if svc != nil {
		r.StockSymbol = svc.StockSymbol
		r.CurrentBalance = svc.CurrentBalance
		r.CurrentShares = svc.CurrentShares
		r.Mode = svc.Mode
	}
	return r
}

// validate loads the service and price history and builds the snapshot.
// A nil preconditions return means the failure Result is final.
func (e *Executor) validate(ctx context.Context, serviceID int64) (*preconditions, *Result) {
	svc, err := e.store.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, model.ErrServiceNotFound) {
			return nil, failure(nil, serviceID, fmt.Sprintf("Service %d not found", serviceID))
		}
		log.Printf("[executor] load service %d: %v", serviceID, err)
		return nil, failure(nil, serviceID, "Could not load service")
	}

	if !(svc.IsActive && svc.State == model.StateActive) {
		return nil, failure(svc, serviceID,
			fmt.Sprintf("Service is not active (state: %s, is_active: %v)", svc.State, svc.IsActive))
	}

	closes, err := e.prices.RecentCloses(ctx, svc.StockSymbol, e.lookbackDays)
	if err != nil {
		if errors.Is(err, model.ErrSymbolNotFound) {
			return nil, failure(svc, serviceID, fmt.Sprintf("Stock %s not found", svc.StockSymbol))
		}
		log.Printf("[executor] fetch closes for %s: %v", svc.StockSymbol, err)
		return nil, failure(svc, serviceID, "Could not load price data")
	}
	if len(closes) < analysis.MinDataPoints {
		return nil, failure(svc, serviceID, "Insufficient price data for analysis")
	}

	snap := analysis.GetPriceAnalysis(closes)
	if !snap.HasData {
		return nil, failure(svc, serviceID, "Insufficient price data for analysis")
	}
	if snap.LatestPrice == nil || *snap.LatestPrice <= 0 {
		return nil, failure(svc, serviceID, "Could not determine current price")
	}

	return &preconditions{svc: svc, snap: snap, price: *snap.LatestPrice}, nil
}

// ExecuteStrategy runs one full strategy cycle for the service. The returned
// Result is always non-nil and interpretable; err is non-nil only for
// unexpected persistence failures, which also roll back every mutation.
func (e *Executor) ExecuteStrategy(ctx context.Context, serviceID int64) (*Result, error) {
	pre, fail := e.validate(ctx, serviceID)
	if fail != nil {
		return fail, nil
	}
	svc, snap, price := pre.svc, pre.snap, pre.price

	res := &Result{
		Success:        true,
		ServiceID:      svc.ID,
		StockSymbol:    svc.StockSymbol,
		CurrentPrice:   price,
		CurrentBalance: svc.CurrentBalance,
		CurrentShares:  svc.CurrentShares,
		Mode:           svc.Mode,
		Signals:        snap.Signals.Map(),
		Action:         ActionNone,
	}

	switch svc.Mode {
	case model.ModeHold:
		res.Message = "Service is in HOLD mode, no actions taken"
		return res, nil
	case model.ModeBuy:
		return e.executeBuy(ctx, svc, snap, price, res)
	case model.ModeSell:
		return e.executeSell(ctx, svc, snap, price, res)
	default:
		res.Success = false
		res.Message = fmt.Sprintf("Unknown trading mode %q", svc.Mode)
		return res, nil
	}
}

func (e *Executor) executeBuy(ctx context.Context, svc *model.Service, snap *analysis.Snapshot, price float64, res *Result) (*Result, error) {
	if !strategy.ShouldBuy(svc, snap, price) {
		res.Message = "Buy conditions not met, no action taken"
		return res, nil
	}

	shares := SharesToBuy(svc.CurrentBalance, svc.AllocationPercent, price)
	if shares <= 0 {
		res.Success = false
		res.Message = "Not enough funds to buy shares"
		return res, nil
	}

	var txn *model.Transaction
	err := e.store.WithTx(ctx, func(tx model.StoreTx) error {
		var err error
		txn, err = CreateBuyTransaction(tx, svc, shares, decimal.NewFromFloat(price), time.Now().UTC())
		return err
	})
	if err != nil {
		return e.mutationFailed(svc, res, "buy", err)
	}

	res.Action = ActionBuy
	res.SharesBought = shares
	res.TotalCost = txn.PurchasePrice.Mul(decimal.NewFromInt(shares))
	res.TransactionID = txn.ID
	res.CurrentBalance = svc.CurrentBalance
	res.CurrentShares = svc.CurrentShares
	res.Message = fmt.Sprintf("Bought %d shares at $%.2f", shares, price)
	log.Printf("[executor] service %d: %s", svc.ID, res.Message)
	return res, nil
}

func (e *Executor) executeSell(ctx context.Context, svc *model.Service, snap *analysis.Snapshot, price float64, res *Result) (*Result, error) {
	if !strategy.ShouldSell(svc, snap) {
		res.Message = "Sell conditions not met, no action taken"
		return res, nil
	}

	// Full-position sell: the entire current holding goes at once.
	shares := svc.CurrentShares
	salePrice := decimal.NewFromFloat(price)
	revenue := salePrice.Mul(decimal.NewFromInt(shares))
	now := time.Now().UTC()

	var lastTxnID int64
	err := e.store.WithTx(ctx, func(tx model.StoreTx) error {
		open, err := tx.OpenTransactions(svc.ID)
		if err != nil {
			return fmt.Errorf("load open transactions: %w", err)
		}
		for i := range open {
			txn := &open[i]
			gain := txn.CalculateGainLoss(salePrice)
			txn.State = model.TxnClosed
			txn.SalePrice = &salePrice
			txn.SaleDate = &now
			txn.GainLoss = &gain
			if err := tx.UpdateTransaction(txn); err != nil {
				return fmt.Errorf("close transaction %d: %w", txn.ID, err)
			}
			svc.TotalGainLoss = svc.TotalGainLoss.Add(gain)
			lastTxnID = txn.ID
		}

		svc.CurrentBalance = svc.CurrentBalance.Add(revenue)
		svc.CurrentShares = 0
		svc.SellCount++
		svc.UpdatedAt = now
		return tx.UpdateService(svc)
	})
	if err != nil {
		return e.mutationFailed(svc, res, "sell", err)
	}

	res.Action = ActionSell
	res.SharesSold = shares
	res.TotalRevenue = revenue
	res.TransactionID = lastTxnID
	res.CurrentBalance = svc.CurrentBalance
	res.CurrentShares = svc.CurrentShares
	res.Message = fmt.Sprintf("Sold %d shares at $%.2f", shares, price)
	log.Printf("[executor] service %d: %s", svc.ID, res.Message)
	return res, nil
}

// mutationFailed converts a transaction-step error into a structured result.
// Business-rule violations keep their message; anything else is logged and
// reported generically, and propagated so callers can alarm on it.
func (e *Executor) mutationFailed(svc *model.Service, res *Result, branch string, err error) (*Result, error) {
	res.Success = false
	res.Action = ActionNone
	var rv *RuleViolation
	if errors.As(err, &rv) {
		res.Message = rv.Message
		return res, nil
	}
	log.Printf("[executor] service %d: %s mutation failed: %v", svc.ID, branch, err)
	res.Message = fmt.Sprintf("Strategy execution failed during %s", branch)
	return res, err
}

// SharesToBuy sizes a buy: the allocation slice of the balance divided by
// price, capped by what the whole balance affords, floored, minimum one
// share. Affordability of that minimum is checked at transaction creation.
func SharesToBuy(balance decimal.Decimal, allocationPercent, price float64) int64 {
	if price <= 0 {
		return 0
	}
	priceDec := decimal.NewFromFloat(price)
	allocAmount := balance.Mul(decimal.NewFromFloat(allocationPercent)).Div(decimal.NewFromInt(100))
	byAllocation := allocAmount.Div(priceDec).IntPart()
	affordable := balance.Div(priceDec).IntPart()

	shares := byAllocation
	if affordable < shares {
		shares = affordable
	}
	if shares < 1 {
		shares = 1
	}
	return shares
}

// CheckBuyCondition is the read-only preview of the buy branch: validation
// plus the predicate, no mutation. Validation failures come back as a
// not-proceeding DecisionResult with the failure message as reason.
func (e *Executor) CheckBuyCondition(ctx context.Context, serviceID int64) (*strategy.DecisionResult, error) {
	pre, fail := e.validate(ctx, serviceID)
	if fail != nil {
		return decisionFromFailure(serviceID, fail), nil
	}

	met := strategy.ShouldBuy(pre.svc, pre.snap, pre.price)
	return strategy.NewDecision(met,
		"Buy conditions met", "Buy conditions not met",
		strategy.ActionBuy, decisionDetails(pre)), nil
}

// CheckSellCondition is the read-only preview of the sell branch.
func (e *Executor) CheckSellCondition(ctx context.Context, serviceID int64) (*strategy.DecisionResult, error) {
	pre, fail := e.validate(ctx, serviceID)
	if fail != nil {
		return decisionFromFailure(serviceID, fail), nil
	}

	met := strategy.ShouldSell(pre.svc, pre.snap)
	return strategy.NewDecision(met,
		"Sell conditions met", "Sell conditions not met",
		strategy.ActionSell, decisionDetails(pre)), nil
}

func decisionDetails(pre *preconditions) strategy.DecisionDetails {
	return strategy.DecisionDetails{
		PriceAnalysis: pre.snap,
		ServiceID:     pre.svc.ID,
		StockSymbol:   pre.svc.StockSymbol,
		CurrentPrice:  pre.price,
	}
}

func decisionFromFailure(serviceID int64, fail *Result) *strategy.DecisionResult {
	return &strategy.DecisionResult{
		ShouldProceed: false,
		Reason:        fail.Message,
		Timestamp:     time.Now().UTC(),
		Details: strategy.DecisionDetails{
			ServiceID:   serviceID,
			StockSymbol: fail.StockSymbol,
		},
		NextAction: strategy.ActionWait,
	}
}
