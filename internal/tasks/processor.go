package tasks

import (
	"context"
	"time"

	"github.com/ignite/filterplane/internal/campaign"
	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/dynamic"
	"github.com/ignite/filterplane/internal/monitoring"
	"github.com/ignite/filterplane/internal/platform/logger"
	"github.com/ignite/filterplane/internal/rules"
	"github.com/ignite/filterplane/internal/stats"
)

// StatsStore persists the per-rule and global counters the stats
// batch processor accumulates.
type StatsStore interface {
	UpsertStats(ctx context.Context, s domain.RuleStats) error
	TouchLastHit(ctx context.Context, id string, at time.Time) error
}

// LogStore bulk-inserts structured log rows.
type LogStore interface {
	BulkInsert(ctx context.Context, rows []domain.LogTaskData) error
}

// WatchStore bumps per-rule hit counts for watch-category rules.
type WatchStore interface {
	BulkIncrementHits(ctx context.Context, ruleID string, count int64) error
}

// Processor is the async task processor (C10): it owns the queue and
// the per-type batch processors, and runs the single background
// drainer loop.
type Processor struct {
	queue      *Queue
	batchSize  int
	rulesCache *rules.Cache
	statsSvc   *stats.Service
	statsStore StatsStore
	logStore   LogStore
	watchStore WatchStore
	matcherSvc WatchMatcher
	dynamicSvc *dynamic.Detector
	campaign   *campaign.Engine
	monitoring *monitoring.Processor

	stopped chan struct{}
}

// WatchMatcher is the subset of the matcher the watch processor needs,
// expressed narrowly so the queue package doesn't depend on C1
// directly.
type WatchMatcher interface {
	FindFirst(patterns []string, subject string, mode domain.MatchMode) (int, error)
}

// Dependencies bundles everything the Processor needs to build its
// per-type batch handlers.
type Dependencies struct {
	RulesCache *rules.Cache
	StatsSvc   *stats.Service
	StatsStore StatsStore
	LogStore   LogStore
	WatchStore WatchStore
	Matcher    WatchMatcher
	DynamicSvc *dynamic.Detector
	Campaign   *campaign.Engine
	Monitoring *monitoring.Processor
}

// NewProcessor wires a Processor against a queue and its dependencies.
func NewProcessor(queue *Queue, batchSize int, deps Dependencies) *Processor {
	return &Processor{
		queue:      queue,
		batchSize:  batchSize,
		rulesCache: deps.RulesCache,
		statsSvc:   deps.StatsSvc,
		statsStore: deps.StatsStore,
		logStore:   deps.LogStore,
		watchStore: deps.WatchStore,
		matcherSvc: deps.Matcher,
		dynamicSvc: deps.DynamicSvc,
		campaign:   deps.Campaign,
		monitoring: deps.Monitoring,
		stopped:    make(chan struct{}),
	}
}

// Enqueue hands one envelope to the queue.
func (p *Processor) Enqueue(ctx context.Context, typ domain.TaskType, data interface{}) error {
	return p.queue.Enqueue(ctx, typ, data)
}

// Run is the single background drainer: pop up to batchSize
// envelopes, group by type, and invoke the per-type processor. It
// returns when ctx is cancelled or DrainAndStop closes the queue.
func (p *Processor) Run(ctx context.Context) {
	defer close(p.stopped)
	for {
		batch, ok := p.queue.popBatch(ctx, p.batchSize)
		if !ok {
			return
		}
		p.processBatch(ctx, batch)
	}
}

// DrainAndStop signals Run to exit after its current batch; callers
// should select on the returned channel to wait for final drain.
func (p *Processor) DrainAndStop() <-chan struct{} {
	return p.stopped
}

func (p *Processor) processBatch(ctx context.Context, batch []domain.TaskEnvelope) {
	byType := make(map[domain.TaskType][]domain.TaskEnvelope)
	for _, env := range batch {
		byType[env.Type] = append(byType[env.Type], env)
	}

	for typ, envs := range byType {
		if err := p.dispatch(ctx, typ, envs); err != nil {
			logger.Error("task batch failed", "type", typ, "error", err.Error(), "count", len(envs))
		}
	}
}

func (p *Processor) dispatch(ctx context.Context, typ domain.TaskType, envs []domain.TaskEnvelope) error {
	switch typ {
	case domain.TaskStats:
		return p.processStats(ctx, envs)
	case domain.TaskLog:
		return p.processLog(ctx, envs)
	case domain.TaskWatch:
		return p.processWatch(ctx, envs)
	case domain.TaskDynamic:
		return p.processDynamic(ctx, envs)
	case domain.TaskCampaign:
		return p.processCampaign(ctx, envs)
	case domain.TaskMonitoring:
		return p.processMonitoring(ctx, envs)
	default:
		return nil
	}
}
