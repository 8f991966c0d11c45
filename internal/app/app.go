// Package app wires every component (C1-C13) into one running
// process: it owns the database pool, the optional Redis client, the
// synchronous filter/detection path, and the background task
// processor and scheduler goroutines. It has no HTTP surface; callers
// embed it behind whatever transport a worker node speaks and call
// Ingest per inbound email.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/filterplane/internal/campaign"
	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/dynamic"
	"github.com/ignite/filterplane/internal/filter"
	"github.com/ignite/filterplane/internal/matcher"
	"github.com/ignite/filterplane/internal/monitoring"
	"github.com/ignite/filterplane/internal/platform/config"
	"github.com/ignite/filterplane/internal/platform/distlock"
	"github.com/ignite/filterplane/internal/platform/logger"
	"github.com/ignite/filterplane/internal/ratio"
	"github.com/ignite/filterplane/internal/retention"
	"github.com/ignite/filterplane/internal/rules"
	"github.com/ignite/filterplane/internal/scheduler"
	"github.com/ignite/filterplane/internal/stats"
	"github.com/ignite/filterplane/internal/storage/postgres"
	"github.com/ignite/filterplane/internal/tasks"
)

// App holds every wired component for one process lifetime.
type App struct {
	cfg *config.Config
	db  *sql.DB

	dynamicConfig *DynamicConfigStore

	rulesSvc        *rules.Service
	filterEngine    *filter.Engine
	dynamicDetector *dynamic.Detector
	campaignEngine  *campaign.Engine
	statsSvc        *stats.Service
	monitoringSig   *monitoring.SignalService
	monitoringProc  *monitoring.Processor
	ratioSvc        *ratio.Service
	retentionSvc    *retention.Service

	taskQueue     *tasks.Queue
	taskProcessor *tasks.Processor
	scheduler     *scheduler.Scheduler

	redisClient *redis.Client
}

// New builds an App from cfg: connects to Postgres, optionally to
// Redis (falling back to PG advisory locks when Redis is unreachable
// or unconfigured, same as the teacher's server wiring), and wires
// every C1-C13 component against those connections.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}

	redisClient := connectRedis(ctx, cfg.Redis)

	ruleRepo := postgres.NewRuleRepo(db)
	statsRepo := postgres.NewStatsRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	monitoringRuleRepo := postgres.NewMonitoringRuleRepo(db)
	signalRepo := postgres.NewSignalStateRepo(db)
	hitLogRepo := postgres.NewHitLogRepo(db)
	alertRepo := postgres.NewAlertRepo(db)
	ratioRepo := postgres.NewRatioMonitorRepo(db)
	logRepo := postgres.NewLogRepo(db)
	watchRepo := postgres.NewWatchHitRepo(db)
	trackerRepo := postgres.NewTrackerRepo(db)

	taskQueue := tasks.NewQueue(cfg.Tasks.QueueCapacity, tasks.OverflowPolicy(cfg.Tasks.OverflowPolicy))

	rulesCache := rules.NewCache()
	m := matcher.New()
	rulesSvc := rules.NewService(ruleRepo, rulesCache, m, taskQueue)

	if err := rulesCache.Reload(ctx, ruleRepo); err != nil {
		db.Close()
		return nil, fmt.Errorf("app: preload rule cache: %w", err)
	}

	filterEngine := filter.New(rulesCache, m)

	dynamicConfig := NewDynamicConfigStore(domainDynamicConfig(cfg.Dynamic))
	dynamicDetector := dynamic.New(trackerRepo, rulesSvc, dynamicConfig.Supplier())

	campaignEngine := campaign.NewEngine(campaignRepo, campaign.DefaultTLDSet())
	statsSvc := stats.NewService(statsRepo)

	monitoringSig := monitoring.NewSignalService(monitoringRuleRepo, signalRepo, hitLogRepo)
	monitoringProc := monitoring.NewProcessor(monitoringRuleRepo, monitoringSig, alertRepo, m)

	ratioSvc := ratio.NewService(ratioRepo, hitLogRepo)
	retentionSvc := retention.NewService(db, dynamicConfig.Supplier())

	taskProcessor := tasks.NewProcessor(taskQueue, cfg.Tasks.BatchSize, tasks.Dependencies{
		RulesCache: rulesCache,
		StatsSvc:   statsSvc,
		StatsStore: ruleRepo,
		LogStore:   logRepo,
		WatchStore: watchRepo,
		Matcher:    m,
		DynamicSvc: dynamicDetector,
		Campaign:   campaignEngine,
		Monitoring: monitoringProc,
	})

	locks := func(key string) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, cfg.Redis.LockTTLDuration())
	}

	sched := scheduler.New(monitoringRuleRepo, signalRepo, hitLogRepo, alertRepo, ratioSvc, retentionSvc,
		campaignEngine, locks, scheduler.Intervals{
			StateTick:     cfg.Scheduler.StateTick(),
			CounterTick:   cfg.Scheduler.CounterTick(),
			CleanupTick:   cfg.Scheduler.CleanupTick(),
			ReconcileTick: cfg.Scheduler.ReconcileTick(),
		})

	return &App{
		cfg:             cfg,
		db:              db,
		dynamicConfig:   dynamicConfig,
		rulesSvc:        rulesSvc,
		filterEngine:    filterEngine,
		dynamicDetector: dynamicDetector,
		campaignEngine:  campaignEngine,
		statsSvc:        statsSvc,
		monitoringSig:   monitoringSig,
		monitoringProc:  monitoringProc,
		ratioSvc:        ratioSvc,
		retentionSvc:    retentionSvc,
		taskQueue:       taskQueue,
		taskProcessor:   taskProcessor,
		scheduler:       sched,
		redisClient:     redisClient,
	}, nil
}

// connectRedis dials Redis when an address is configured, pinging
// once to fail fast; any error (including "not configured") leaves the
// client nil so distlock.NewLock falls back to Postgres advisory
// locks. This never makes Redis a hard startup dependency.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("app: redis ping failed, falling back to PG advisory locks", "addr", cfg.Addr, "error", err.Error())
		client.Close()
		return nil
	}
	logger.Info("app: redis connected, distributed locking enabled", "addr", cfg.Addr)
	return client
}

// domainDynamicConfig converts the YAML-loaded config shape to the
// runtime domain.DynamicConfig the detector and retention service read.
func domainDynamicConfig(cfg config.DynamicConfig) domain.DynamicConfig {
	return domain.DynamicConfig{
		Enabled:                  cfg.Enabled,
		TimeWindowMinutes:        cfg.TimeWindowMinutes,
		ThresholdCount:           cfg.ThresholdCount,
		TimeSpanThresholdMinutes: cfg.TimeSpanThresholdMinutes,
		ExpirationHours:          cfg.ExpirationHours,
		LastHitThresholdHours:    cfg.LastHitThresholdHours,
	}
}

// Run starts the background task processor and scheduler loops and
// blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	go a.taskProcessor.Run(ctx)
	go a.scheduler.Run(ctx)
	<-ctx.Done()
}

// Shutdown drains the task queue (bounded by the configured wait) and
// releases the database and Redis connections. Callers should cancel
// the context passed to Run before calling Shutdown so the scheduler
// and processor loops have already begun exiting.
func (a *App) Shutdown(ctx context.Context) error {
	select {
	case <-a.taskProcessor.DrainAndStop():
	case <-time.After(time.Duration(a.cfg.Tasks.ShutdownWaitMs) * time.Millisecond):
		logger.Warn("app: shutdown wait exceeded, remaining queued tasks will be dropped")
	case <-ctx.Done():
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.Warn("app: redis close failed", "error", err.Error())
		}
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("app: close postgres: %w", err)
	}
	return nil
}
