// Package scheduler drives the engine's periodic work: strategy runs for
// every active trading service and the daily price refresh. Jobs are cron
// scheduled; an overlapping sweep is skipped rather than queued.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"daytraderv1/internal/execution"
	"daytraderv1/internal/logger"
	"daytraderv1/internal/markethours"
	"daytraderv1/internal/metrics"
	"daytraderv1/internal/model"
	"daytraderv1/internal/notification"
)

// Default schedules (standard 5-field cron, server local time).
const (
	DefaultStrategySpec = "*/5 * * * *" // every 5 minutes
	DefaultRefreshSpec  = "15 17 * * *" // daily, after market close
)

// Runner executes the trading strategy for one service.
type Runner interface {
	ExecuteStrategy(ctx context.Context, serviceID int64) (*execution.Result, error)
}

// Refresher pulls fresh daily bars into the price store, reporting how
// many bars were written.
type Refresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// Directory lists the services a sweep should visit and resolves the
// entities that go into events.
type Directory interface {
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	GetService(ctx context.Context, id int64) (*model.Service, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
}

// Config configures the scheduler.
type Config struct {
	StrategySpec string
	RefreshSpec  string

	// MarketHoursOnly skips strategy sweeps outside regular trading hours.
	// The price refresh always runs.
	MarketHoursOnly bool
}

// Scheduler owns the cron loop and the per-sweep orchestration.
type Scheduler struct {
	cfg      Config
	dir      Directory
	runner   Runner
	prices   Refresher
	events   model.EventPublisher  // optional
	notifier notification.Notifier // optional
	prom     *metrics.Metrics      // optional
	health   *metrics.HealthStatus // optional

	cron *cron.Cron
	now  func() time.Time
}

// New creates a Scheduler. events, notifier, prom, and health may be nil.
func New(cfg Config, dir Directory, runner Runner, prices Refresher,
	events model.EventPublisher, notifier notification.Notifier,
	prom *metrics.Metrics, health *metrics.HealthStatus) *Scheduler {

	if cfg.StrategySpec == "" {
		cfg.StrategySpec = DefaultStrategySpec
	}
	if cfg.RefreshSpec == "" {
		cfg.RefreshSpec = DefaultRefreshSpec
	}
	return &Scheduler{
		cfg:      cfg,
		dir:      dir,
		runner:   runner,
		prices:   prices,
		events:   events,
		notifier: notifier,
		prom:     prom,
		health:   health,
		now:      time.Now,
	}
}

// Start registers the cron jobs and begins scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	if _, err := s.cron.AddFunc(s.cfg.StrategySpec, func() { s.RunAll(ctx) }); err != nil {
		return err
	}
	if s.prices != nil {
		if _, err := s.cron.AddFunc(s.cfg.RefreshSpec, func() { s.RefreshPrices(ctx) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	if s.health != nil {
		s.health.SetSchedulerOK(true)
	}
	log.Printf("[scheduler] started (strategy %q, refresh %q, market hours only: %v)",
		s.cfg.StrategySpec, s.cfg.RefreshSpec, s.cfg.MarketHoursOnly)
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	if s.health != nil {
		s.health.SetSchedulerOK(false)
	}
	log.Println("[scheduler] stopped")
}

// RunAll executes the strategy for every active service, sequentially.
// Sequential execution is what guarantees at most one in-flight run per
// service within a sweep; overlapping sweeps are skipped by the cron chain.
func (s *Scheduler) RunAll(ctx context.Context) {
	if s.cfg.MarketHoursOnly && !markethours.IsMarketOpen(s.now()) {
		log.Printf("[scheduler] %s, skipping sweep", markethours.StatusString(s.now()))
		return
	}

	services, err := s.dir.ListActiveServices(ctx)
	if err != nil {
		log.Printf("[scheduler] list active services: %v", err)
		return
	}
	if s.prom != nil {
		s.prom.ActiveServices.Set(float64(len(services)))
	}
	if s.health != nil {
		s.health.SetLastRunAt(s.now())
	}

	for i := range services {
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, services[i].ID)
	}
}

func (s *Scheduler) runOne(ctx context.Context, serviceID int64) {
	start := time.Now()
	// One trace ID spans the run and its follow-up publishes.
	ctx = logger.WithTraceID(ctx, logger.RunTraceID(serviceID, start))
	res, err := s.runner.ExecuteStrategy(ctx, serviceID)
	elapsed := time.Since(start)

	if s.prom != nil {
		s.prom.StrategyRunDur.Observe(elapsed.Seconds())
		s.prom.StrategyRunsTotal.WithLabelValues(actionLabel(res, err)).Inc()
	}
	if err != nil {
		log.Printf("[scheduler] service %d: execution error: %v (%s)",
			serviceID, err, logger.TraceID(ctx))
	}
	if res == nil {
		return
	}

	if res.Action == execution.ActionBuy || res.Action == execution.ActionSell {
		if s.prom != nil {
			s.prom.TradesTotal.WithLabelValues(res.Action).Inc()
			s.prom.SharesTraded.WithLabelValues(res.Action).
				Add(float64(res.SharesBought + res.SharesSold))
		}
		s.publishTrade(ctx, res)
	}

	if s.notifier != nil {
		if alert, ok := notification.TradeAlert(res); ok {
			if err := s.notifier.Send(ctx, alert); err != nil {
				log.Printf("[scheduler] notify: %v", err)
			}
		}
	}
}

// publishTrade pushes the post-trade service and transaction states onto
// the event channels. Publish failures never fail the sweep.
func (s *Scheduler) publishTrade(ctx context.Context, res *execution.Result) {
	if s.events == nil {
		return
	}

	svc, err := s.dir.GetService(ctx, res.ServiceID)
	if err != nil {
		log.Printf("[scheduler] reload service %d for event: %v", res.ServiceID, err)
		s.countPublishError()
	} else if err := s.events.PublishServiceUpdate(ctx, "service_update", svc); err != nil {
		log.Printf("[scheduler] publish service update: %v", err)
		s.countPublishError()
	}

	if res.TransactionID == 0 {
		return
	}
	txn, err := s.dir.GetTransaction(ctx, res.TransactionID)
	if err != nil {
		log.Printf("[scheduler] reload transaction %d for event: %v", res.TransactionID, err)
		s.countPublishError()
		return
	}
	if err := s.events.PublishTransactionUpdate(ctx, res.Action, txn); err != nil {
		log.Printf("[scheduler] publish transaction update: %v", err)
		s.countPublishError()
	}
}

func (s *Scheduler) countPublishError() {
	if s.prom != nil {
		s.prom.EventPublishErrors.Inc()
	}
}

// RefreshPrices runs one price refresh sweep.
func (s *Scheduler) RefreshPrices(ctx context.Context) {
	start := time.Now()
	n, err := s.prices.RefreshAll(ctx)
	if s.prom != nil {
		s.prom.PriceRefreshDur.Observe(time.Since(start).Seconds())
		s.prom.PriceBarsFetched.Add(float64(n))
	}
	if err != nil {
		log.Printf("[scheduler] price refresh: %v", err)
		return
	}
	if s.health != nil {
		s.health.SetLastRefreshAt(s.now())
	}
}

func actionLabel(res *execution.Result, err error) string {
	if err != nil || res == nil || !res.Success {
		return "failed"
	}
	if res.Action == "" {
		return execution.ActionNone
	}
	return res.Action
}
