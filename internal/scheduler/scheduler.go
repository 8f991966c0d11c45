// Package scheduler implements the heartbeat/scheduler (C9): a single
// cooperative loop running four independent wall-clock ticks —
// signal-state recompute, counter decay, retention cleanup, and
// campaign-counter reconciliation.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/campaign"
	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/monitoring"
	"github.com/ignite/filterplane/internal/platform/distlock"
	"github.com/ignite/filterplane/internal/platform/logger"
	"github.com/ignite/filterplane/internal/ratio"
	"github.com/ignite/filterplane/internal/retention"
)

// LockFactory builds a per-key distributed lock, guaranteeing
// stateTick never interleaves with itself for the same rule id. Hit
// recording does not take this lock.
type LockFactory func(key string) distlock.DistLock

// Intervals is the scheduler's tick cadence, mirroring
// config.SchedulerConfig without importing the config package
// directly.
type Intervals struct {
	StateTick     time.Duration
	CounterTick   time.Duration
	CleanupTick   time.Duration
	ReconcileTick time.Duration
}

// Scheduler runs the independent ticks described in spec.md §4.6,
// plus the campaign-counter reconciliation sweep, until its context is
// cancelled.
type Scheduler struct {
	rules     monitoring.RuleStore
	signals   monitoring.SignalStore
	hits      monitoring.HitLogStore
	alerts    monitoring.AlertStore
	ratioSvc  *ratio.Service
	retention *retention.Service
	campaign  *campaign.Engine
	locks     LockFactory
	intervals Intervals
}

// New wires a Scheduler.
func New(rules monitoring.RuleStore, signals monitoring.SignalStore, hits monitoring.HitLogStore,
	alerts monitoring.AlertStore, ratioSvc *ratio.Service, retentionSvc *retention.Service,
	campaignEngine *campaign.Engine, locks LockFactory, intervals Intervals) *Scheduler {
	return &Scheduler{
		rules: rules, signals: signals, hits: hits, alerts: alerts,
		ratioSvc: ratioSvc, retention: retentionSvc, campaign: campaignEngine,
		locks: locks, intervals: intervals,
	}
}

// Run starts the ticks and blocks until ctx is cancelled. A zero or
// negative ReconcileTick falls back to a 24h reconciliation period.
func (s *Scheduler) Run(ctx context.Context) {
	stateTicker := time.NewTicker(s.intervals.StateTick)
	counterTicker := time.NewTicker(s.intervals.CounterTick)
	cleanupTicker := time.NewTicker(s.intervals.CleanupTick)
	defer stateTicker.Stop()
	defer counterTicker.Stop()
	defer cleanupTicker.Stop()

	reconcileTick := s.intervals.ReconcileTick
	if reconcileTick <= 0 {
		reconcileTick = 24 * time.Hour
	}
	reconcileTicker := time.NewTicker(reconcileTick)
	defer reconcileTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stateTicker.C:
			if err := s.stateTick(ctx); err != nil {
				logger.Error("scheduler: state tick failed", "error", err.Error())
			}
			if s.ratioSvc != nil {
				if err := s.ratioSvc.EvaluateAll(ctx); err != nil {
					logger.Error("scheduler: ratio evaluation failed", "error", err.Error())
				}
			}
		case <-counterTicker.C:
			if err := s.counterTick(ctx); err != nil {
				logger.Error("scheduler: counter tick failed", "error", err.Error())
			}
		case <-cleanupTicker.C:
			if err := s.cleanupTick(ctx); err != nil {
				logger.Error("scheduler: cleanup tick failed", "error", err.Error())
			}
		case <-reconcileTicker.C:
			s.reconcileTick(ctx)
		}
	}
}

// stateTick recomputes ACTIVE/WEAK/DEAD for every signal row from its
// rule's expected/dead-after intervals, emitting an alert on every
// transition. Each rule id is guarded by its own lock so this tick
// never interleaves with itself for that rule.
func (s *Scheduler) stateTick(ctx context.Context) error {
	states, err := s.signals.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list signal states: %w", err)
	}

	for _, state := range states {
		if err := s.recomputeOne(ctx, state); err != nil {
			logger.Error("scheduler: recompute signal failed", "rule_id", state.RuleID, "error", err.Error())
		}
	}
	return nil
}

func (s *Scheduler) recomputeOne(ctx context.Context, state domain.SignalState) error {
	lock := s.locks("signal:" + state.RuleID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil // another tick is already recomputing this rule
	}
	defer lock.Release(ctx)

	rule, err := s.rules.Get(ctx, state.RuleID)
	if err != nil {
		return fmt.Errorf("get rule: %w", err)
	}

	var gap time.Duration = 1<<63 - 1 // effectively +Inf
	if state.LastSeenAt != nil {
		gap = time.Since(*state.LastSeenAt)
	}

	newState := domain.SignalDead
	switch {
	case state.LastSeenAt != nil && gap <= time.Duration(float64(rule.ExpectedIntervalMinutes)*1.5*float64(time.Minute)):
		newState = domain.SignalActive
	case state.LastSeenAt != nil && gap <= time.Duration(rule.DeadAfterMinutes)*time.Minute:
		newState = domain.SignalWeak
	}

	if newState == state.State {
		return nil
	}

	next := state
	next.State = newState
	next.UpdatedAt = time.Now().UTC()
	if err := s.signals.Upsert(ctx, next); err != nil {
		return fmt.Errorf("upsert signal state: %w", err)
	}

	alertType := domain.AlertSignalWeakened
	if newState == domain.SignalDead {
		alertType = domain.AlertSignalDead
	}
	gapMinutes := float64(gap) / float64(time.Minute)
	return s.alerts.Create(ctx, domain.Alert{
		ID:            uuid.New().String(),
		RuleID:        state.RuleID,
		AlertType:     alertType,
		PreviousState: state.State,
		CurrentState:  newState,
		GapMinutes:    gapMinutes,
		Count1h:       state.Count1h,
		Count12h:      state.Count12h,
		Count24h:      state.Count24h,
		CreatedAt:     time.Now().UTC(),
	})
}

// counterTick recomputes count_1h/12h/24h from hit_logs truncated to
// each window. This is deliberately naive (a full recount, not a
// decay) but always correct.
func (s *Scheduler) counterTick(ctx context.Context) error {
	states, err := s.signals.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list signal states: %w", err)
	}

	now := time.Now()
	for _, state := range states {
		count1h, err := s.hits.CountSince(ctx, state.RuleID, now.Add(-time.Hour))
		if err != nil {
			logger.Error("scheduler: count 1h failed", "rule_id", state.RuleID, "error", err.Error())
			continue
		}
		count12h, err := s.hits.CountSince(ctx, state.RuleID, now.Add(-12*time.Hour))
		if err != nil {
			logger.Error("scheduler: count 12h failed", "rule_id", state.RuleID, "error", err.Error())
			continue
		}
		count24h, err := s.hits.CountSince(ctx, state.RuleID, now.Add(-24*time.Hour))
		if err != nil {
			logger.Error("scheduler: count 24h failed", "rule_id", state.RuleID, "error", err.Error())
			continue
		}

		next := state
		next.Count1h, next.Count12h, next.Count24h = count1h, count12h, count24h
		next.UpdatedAt = now.UTC()
		if err := s.signals.Upsert(ctx, next); err != nil {
			logger.Error("scheduler: upsert recount failed", "rule_id", state.RuleID, "error", err.Error())
		}
	}
	return nil
}

// cleanupTick invokes C11's expired-dynamic-rule sweep, the only
// retention operation with no required caller-supplied scope.
func (s *Scheduler) cleanupTick(ctx context.Context) error {
	if s.retention == nil {
		return nil
	}
	n, err := s.retention.CleanupExpiredDynamicRules(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired dynamic rules: %w", err)
	}
	if n > 0 {
		logger.Info("scheduler: cleanup tick removed expired dynamic rules", "count", n)
	}
	return nil
}

// reconcileTick sweeps every merchant's denormalized campaign counters
// back into agreement with source data, the nightly counterpart to
// TrackEmail's incremental bookkeeping. A nil campaign engine (no
// campaign-analytics component wired) makes this a no-op.
func (s *Scheduler) reconcileTick(ctx context.Context) {
	if s.campaign == nil {
		return
	}
	results, errs := s.campaign.ReconcileAll(ctx)
	for _, err := range errs {
		logger.Error("scheduler: reconcile failed", "error", err.Error())
	}
	if len(results) > 0 {
		logger.Info("scheduler: reconcile tick swept merchants", "count", len(results))
	}
}

// SortStates orders signal states for UI display: DEAD < WEAK <
// ACTIVE, tie-broken by descending rule.created_at.
func SortStates(states []domain.SignalState, createdAt map[string]time.Time) {
	sort.Slice(states, func(i, j int) bool {
		ri, rj := states[i].State.Rank(), states[j].State.Rank()
		if ri != rj {
			return ri < rj
		}
		return createdAt[states[i].RuleID].After(createdAt[states[j].RuleID])
	})
}
