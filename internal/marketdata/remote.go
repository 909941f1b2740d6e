package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"daytraderv1/internal/model"
)

const (
	remoteDateLayout = "2006-01-02 15:04"

	loginPath   = "/rest/auth/user/v1/loginByPassword"
	candlesPath = "/rest/secure/historical/v1/getCandleData"
)

// RemoteConfig configures the upstream broker API client. The broker uses
// TOTP-based two-factor login, so TOTPSecret is the shared secret, not a
// one-time code.
type RemoteConfig struct {
	BaseURL    string
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
	Timeout    time.Duration // default 7s
}

// Remote fetches daily bars from the broker's historical data API.
// Sessions are created lazily and renewed when the broker rejects the
// token.
type Remote struct {
	cfg        RemoteConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
}

// NewRemote creates a Remote client. No network traffic happens until the
// first DailyBars call.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Remote{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// login generates a fresh TOTP code and opens a session.
func (r *Remote) login(ctx context.Context) error {
	code, err := totp.GenerateCode(r.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}

	body, _ := json.Marshal(map[string]string{
		"clientcode": r.cfg.ClientCode,
		"password":   r.cfg.Password,
		"totp":       code,
	})
	resp, err := r.post(ctx, loginPath, "", body)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if !resp.Status {
		return fmt.Errorf("login rejected: %s", resp.Message)
	}

	var data struct {
		JWTToken string `json:"jwtToken"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("parse login response: %w", err)
	}
	if data.JWTToken == "" {
		return fmt.Errorf("login returned empty token")
	}

	r.accessToken = data.JWTToken
	log.Printf("[marketdata] broker session established for %s", r.cfg.ClientCode)
	return nil
}

func (r *Remote) post(ctx context.Context, path, token string, body []byte) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-PrivateKey", r.cfg.APIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("broker returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse broker response: %w", err)
	}
	return &out, nil
}

var errSessionExpired = fmt.Errorf("broker session expired")

// DailyBars fetches ONE_DAY candles for [from, to], inclusive. An expired
// session triggers one re-login and retry.
func (r *Remote) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken == "" {
		if err := r.login(ctx); err != nil {
			return nil, err
		}
	}

	bars, err := r.fetchBars(ctx, symbol, from, to)
	if err == errSessionExpired {
		log.Printf("[marketdata] session expired, re-authenticating")
		if err := r.login(ctx); err != nil {
			return nil, err
		}
		bars, err = r.fetchBars(ctx, symbol, from, to)
	}
	return bars, err
}

func (r *Remote) fetchBars(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyPrice, error) {
	body, _ := json.Marshal(map[string]string{
		"symbol":   symbol,
		"interval": "ONE_DAY",
		"fromdate": from.Format(remoteDateLayout),
		"todate":   to.Format(remoteDateLayout),
	})
	resp, err := r.post(ctx, candlesPath, r.accessToken, body)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("candle request rejected: %s", resp.Message)
	}

	// Rows come as [timestamp, open, high, low, close, volume].
	var rows [][]json.RawMessage
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return nil, fmt.Errorf("parse candle rows: %w", err)
	}

	bars := make([]model.DailyPrice, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			continue
		}
		date, err := parseBarDate(ts)
		if err != nil {
			log.Printf("[marketdata] skipping bar with bad timestamp %q: %v", ts, err)
			continue
		}

		var ohlcv [5]float64
		bad := false
		for i := 0; i < 5; i++ {
			if err := json.Unmarshal(row[i+1], &ohlcv[i]); err != nil {
				bad = true
				break
			}
		}
		if bad {
			continue
		}

		bars = append(bars, model.DailyPrice{
			Symbol: symbol,
			Date:   date,
			Open:   ohlcv[0],
			High:   ohlcv[1],
			Low:    ohlcv[2],
			Close:  ohlcv[3],
			Volume: int64(ohlcv[4]),
		})
	}
	return bars, nil
}

func parseBarDate(ts string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
