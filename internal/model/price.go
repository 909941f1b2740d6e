package model

import (
	"encoding/json"
	"time"
)

// DailyPrice is one OHLCV bar for a stock, keyed by symbol and trading day.
// Closes feed the indicator engine as plain float64 series.
type DailyPrice struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Key returns a unique key for this bar: "symbol:YYYY-MM-DD".
func (p *DailyPrice) Key() string {
	return p.Symbol + ":" + p.Date.Format("2006-01-02")
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (p *DailyPrice) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}
