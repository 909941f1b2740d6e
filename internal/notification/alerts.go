package notification

import (
	"fmt"

	"daytraderv1/internal/execution"
)

// TradeAlert converts a strategy run result into an alert. Only trades and
// failures are alert-worthy; no-action runs return ok=false.
func TradeAlert(res *execution.Result) (Alert, bool) {
	if res == nil {
		return Alert{}, false
	}

	if !res.Success {
		return Alert{
			Level:   AlertWarning,
			Title:   fmt.Sprintf("Strategy failed for service %d", res.ServiceID),
			Message: res.Message,
		}, true
	}

	switch res.Action {
	case execution.ActionBuy:
		return Alert{
			Level: AlertInfo,
			Title: fmt.Sprintf("BUY %s", res.StockSymbol),
			Message: fmt.Sprintf("%s (service %d, cost $%s, balance $%s)",
				res.Message, res.ServiceID, res.TotalCost.StringFixed(2), res.CurrentBalance.StringFixed(2)),
			Trade: &Trade{
				ServiceID:     res.ServiceID,
				TransactionID: res.TransactionID,
				Symbol:        res.StockSymbol,
				Action:        res.Action,
				Shares:        res.SharesBought,
				Price:         res.CurrentPrice,
				Amount:        res.TotalCost,
				Balance:       res.CurrentBalance,
			},
		}, true
	case execution.ActionSell:
		return Alert{
			Level: AlertInfo,
			Title: fmt.Sprintf("SELL %s", res.StockSymbol),
			Message: fmt.Sprintf("%s (service %d, revenue $%s, balance $%s)",
				res.Message, res.ServiceID, res.TotalRevenue.StringFixed(2), res.CurrentBalance.StringFixed(2)),
			Trade: &Trade{
				ServiceID:     res.ServiceID,
				TransactionID: res.TransactionID,
				Symbol:        res.StockSymbol,
				Action:        res.Action,
				Shares:        res.SharesSold,
				Price:         res.CurrentPrice,
				Amount:        res.TotalRevenue,
				Balance:       res.CurrentBalance,
			},
		}, true
	}
	return Alert{}, false
}
