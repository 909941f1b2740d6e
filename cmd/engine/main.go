// cmd/engine runs the trading decision engine: cron-scheduled strategy
// sweeps over every active trading service, a daily price refresh, Redis
// event publishing, and the WebSocket gateway for live entity updates.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daytraderv1/config"
	"daytraderv1/internal/events"
	"daytraderv1/internal/execution"
	"daytraderv1/internal/gateway"
	"daytraderv1/internal/logger"
	"daytraderv1/internal/marketdata"
	"daytraderv1/internal/metrics"
	"daytraderv1/internal/model"
	"daytraderv1/internal/notification"
	"daytraderv1/internal/portfolio"
	"daytraderv1/internal/scheduler"
	sqlitestore "daytraderv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[engine] starting...")

	cfg := config.Load()
	logger.Init("trading-engine", slog.LevelInfo)

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite store ----
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[engine] sqlite init failed: %v", err)
	}
	defer store.Close()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Redis event publisher ----
	publisher, err := events.New(events.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[engine] WARNING: redis init failed: %v (continuing without events)", err)
		health.SetRedisConnected(false)
	} else {
		defer publisher.Close()
		health.SetRedisConnected(true)
	}

	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Market data provider ----
	var source marketdata.Source
	if cfg.HasBroker() {
		source = marketdata.NewRemote(marketdata.RemoteConfig{
			BaseURL:    cfg.BrokerBaseURL,
			APIKey:     cfg.BrokerAPIKey,
			ClientCode: cfg.BrokerClientCode,
			Password:   cfg.BrokerPassword,
			TOTPSecret: cfg.BrokerTOTPSecret,
		})
		log.Println("[engine] broker feed configured")
	} else {
		log.Println("[engine] no broker credentials, trading on stored prices only")
	}
	provider := marketdata.New(store, source)

	// ---- Strategy executor ----
	executor := execution.New(store, provider)

	// ---- Notifications ----
	backends := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	notifier := notification.NewMultiNotifier(backends...)

	// ---- Scheduler ----
	var eventSink model.EventPublisher
	if publisher != nil {
		eventSink = publisher
	}
	var refresher scheduler.Refresher
	if source != nil {
		refresher = provider
	}
	sched := scheduler.New(scheduler.Config{
		StrategySpec:    cfg.StrategyCron,
		RefreshSpec:     cfg.RefreshCron,
		MarketHoursOnly: cfg.MarketHoursOnly,
	}, store, executor, refresher, eventSink, notifier, prom, health)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[engine] scheduler start failed: %v", err)
	}

	// Prime the price cache on boot so the first sweep has data.
	if source != nil {
		go sched.RefreshPrices(ctx)
	}

	// ---- WebSocket gateway ----
	var gwSrv *http.Server
	if publisher != nil {
		hub := gateway.NewHub(publisher.Client())
		hub.ClientGauge = prom.WSClients
		go hub.Router.Run(ctx)
		go hub.Router.RunPattern(ctx)

		mux := http.NewServeMux()
		book := portfolio.New(store, provider)
		gateway.RegisterRoutes(mux, hub, store, book, time.Now())
		gwSrv = &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
		go func() {
			log.Printf("[engine] gateway serving at http://localhost%s", cfg.GatewayAddr)
			if err := gwSrv.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("[engine] gateway error: %v", err)
			}
		}()
	}

	log.Println("[engine] ╔═══════════════════════════════════════════════════════════════╗")
	log.Println("[engine] ║  Trading Decision Engine                                      ║")
	log.Println("[engine] ║                                                               ║")
	log.Println("[engine] ║  [Scheduler] → [Analysis] → [Rules] → [Executor] → [SQLite]   ║")
	log.Println("[engine] ║  Events: Redis PubSub → WebSocket gateway                     ║")
	log.Printf("[engine] ║  Strategy: %-24q  Refresh: %-13q ║", cfg.StrategyCron, cfg.RefreshCron)
	log.Println("[engine] ╚═══════════════════════════════════════════════════════════════╝")

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[engine] shutdown signal received, cleaning up...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if gwSrv != nil {
		gwSrv.Shutdown(shutdownCtx)
	}
	metricsSrv.Stop(shutdownCtx)

	log.Println("[engine] shutdown complete.")
}
