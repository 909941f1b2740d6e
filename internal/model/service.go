package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Service is a configured automated strategy instance tracking funds and
// position for one stock. Money fields are decimals; balances are mutated
// only by the strategy executor inside a single store transaction.
type Service struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	Name              string          `json:"name"`
	StockSymbol       string          `json:"stock_symbol"`
	State             ServiceState    `json:"state"`
	Mode              TradingMode     `json:"mode"`
	IsActive          bool            `json:"is_active"`
	InitialBalance    decimal.Decimal `json:"initial_balance"`
	CurrentBalance    decimal.Decimal `json:"current_balance"`
	MinimumBalance    decimal.Decimal `json:"minimum_balance"`
	AllocationPercent float64         `json:"allocation_percent"`
	BuyThreshold      float64         `json:"buy_threshold"`
	SellThreshold     float64         `json:"sell_threshold"`
	CurrentShares     int64           `json:"current_shares"`
	BuyCount          int64           `json:"buy_count"`
	SellCount         int64           `json:"sell_count"`
	TotalGainLoss     decimal.Decimal `json:"total_gain_loss"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Validate checks structural invariants before persisting a service.
func (s *Service) Validate() error {
	if strings.TrimSpace(s.StockSymbol) == "" {
		return fmt.Errorf("stock symbol is required")
	}
	if !s.State.IsValid() {
		return fmt.Errorf("invalid service state %q", s.State)
	}
	if !s.Mode.IsValid() {
		return fmt.Errorf("invalid trading mode %q", s.Mode)
	}
	if s.InitialBalance.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("initial balance must be greater than 0")
	}
	if s.AllocationPercent < 0 || s.AllocationPercent > 100 {
		return fmt.Errorf("allocation percent must be between 0 and 100")
	}
	return nil
}

// NormalizeSymbol uppercases and trims the stock symbol in place.
func (s *Service) NormalizeSymbol() {
	s.StockSymbol = strings.ToUpper(strings.TrimSpace(s.StockSymbol))
}

// CanBuy reports whether the service is in a state where buying is allowed:
// active, in BUY mode, with balance above the configured minimum.
func (s *Service) CanBuy() bool {
	return s.IsActive &&
		s.State == StateActive &&
		s.Mode == ModeBuy &&
		s.CurrentBalance.GreaterThan(s.MinimumBalance)
}

// CanSell reports whether the service is in a state where selling is allowed:
// active, in SELL mode, holding at least one share.
func (s *Service) CanSell() bool {
	return s.IsActive &&
		s.State == StateActive &&
		s.Mode == ModeSell &&
		s.CurrentShares > 0
}
