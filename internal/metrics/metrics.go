package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	StrategyRunsTotal *prometheus.CounterVec // labels: action=buy|sell|none|failed
	StrategyRunDur    prometheus.Histogram
	TradesTotal       *prometheus.CounterVec // labels: side=buy|sell
	SharesTraded      *prometheus.CounterVec // labels: side=buy|sell

	PriceRefreshDur  prometheus.Histogram
	PriceBarsFetched prometheus.Counter

	EventPublishErrors prometheus.Counter
	ActiveServices     prometheus.Gauge
	WSClients          prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		StrategyRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_strategy_runs_total",
			Help: "Strategy executions by resulting action",
		}, []string{"action"}),
		StrategyRunDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_strategy_run_duration_seconds",
			Help:    "Strategy execution latency per service",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_trades_total",
			Help: "Completed trades by side",
		}, []string{"side"}),
		SharesTraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_shares_traded_total",
			Help: "Shares bought and sold",
		}, []string{"side"}),

		PriceRefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_price_refresh_duration_seconds",
			Help:    "Daily price refresh sweep latency",
			Buckets: prometheus.DefBuckets,
		}),
		PriceBarsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_price_bars_fetched_total",
			Help: "Daily bars fetched from the upstream feed",
		}),

		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_event_publish_errors_total",
			Help: "Failed Redis event publishes",
		}),
		ActiveServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_active_services",
			Help: "Trading services picked up by the last scheduler sweep",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_ws_clients",
			Help: "Connected WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.StrategyRunsTotal,
		m.StrategyRunDur,
		m.TradesTotal,
		m.SharesTraded,
		m.PriceRefreshDur,
		m.PriceBarsFetched,
		m.EventPublishErrors,
		m.ActiveServices,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	SchedulerOK    bool      `json:"scheduler_ok"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastRefreshAt  time.Time `json:"last_refresh_at"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSchedulerOK(v bool) {
	h.mu.Lock()
	h.SchedulerOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRunAt(t time.Time) {
	h.mu.Lock()
	h.LastRunAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRefreshAt(t time.Time) {
	h.mu.Lock()
	h.LastRefreshAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}
	lastRefresh := ""
	if !h.LastRefreshAt.IsZero() {
		lastRefresh = h.LastRefreshAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		SchedulerOK     bool    `json:"scheduler_ok"`
		LastRunAt       string  `json:"last_run_at"`
		LastRefreshAt   string  `json:"last_refresh_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		SchedulerOK:     h.SchedulerOK,
		LastRunAt:       lastRun,
		LastRefreshAt:   lastRefresh,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
