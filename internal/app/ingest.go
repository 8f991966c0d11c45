package app

import (
	"context"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/filter"
	"github.com/ignite/filterplane/internal/platform/logger"
)

// Ingest is the synchronous top-level operation a worker node calls
// per inbound email: it evaluates the filter decision, runs dynamic
// rule detection inline when the message would otherwise default-
// forward, and fans the email out to the async processors that feed
// C5/C6/C7/C8.
//
// The dynamic check runs here rather than only through the async
// "dynamic" task type because a newly created rule must retroactively
// block the very message that triggered it -- the decision this
// function returns has to reflect that rule before the caller acts on
// it. See DESIGN.md's Open Question decisions for why the async
// dynamic task type still exists alongside this.
func (a *App) Ingest(ctx context.Context, ev filter.Event) filter.Decision {
	decision := a.filterEngine.Evaluate(ev)

	if decision.MatchedCategory == "" {
		decision = a.runDynamicDetection(ctx, ev, decision)
	}

	a.enqueueFollowUp(ctx, ev, decision)
	return decision
}

// runDynamicDetection tracks a default-forwarded subject and, if a new
// dynamic rule was just created, upgrades the decision to a drop. A
// tracking failure falls back to an async TaskDynamic envelope rather
// than retrying inline, since Ingest must never block a worker node on
// a database hiccup.
func (a *App) runDynamicDetection(ctx context.Context, ev filter.Event, decision filter.Decision) filter.Decision {
	result, err := a.dynamicDetector.TrackSubject(ctx, ev.Subject, ev.Timestamp)
	if err != nil {
		logger.Error("ingest: synchronous dynamic detection failed, deferring to async replay", "error", err.Error())
		if enqErr := a.taskQueue.Enqueue(ctx, domain.TaskDynamic, domain.DynamicTaskData{
			Subject:    ev.Subject,
			ReceivedAt: ev.Timestamp,
			WorkerName: ev.WorkerName,
		}); enqErr != nil {
			logger.Error("ingest: dynamic fallback enqueue failed", "error", enqErr.Error())
		}
		return decision
	}

	if result.Created && result.Rule != nil {
		return filter.Decision{
			Action:          filter.ActionDrop,
			Reason:          "dynamic rule triggered synchronously",
			MatchedCategory: domain.CategoryDynamic,
			MatchedRule:     result.Rule,
		}
	}
	return decision
}

// enqueueFollowUp fans one evaluated email out to every async
// processor except "dynamic", which runDynamicDetection already ran
// (or deferred) inline.
func (a *App) enqueueFollowUp(ctx context.Context, ev filter.Event, decision filter.Decision) {
	var ruleID string
	var ruleIDPtr *string
	if decision.MatchedRule != nil {
		ruleID = decision.MatchedRule.ID
		ruleIDPtr = &ruleID
	}

	if err := a.taskQueue.Enqueue(ctx, domain.TaskStats, domain.StatsTaskData{
		RuleID:    ruleID,
		Processed: decision.Action == filter.ActionForward,
		Dropped:   decision.Action == filter.ActionDrop,
	}); err != nil {
		logger.Warn("ingest: stats enqueue failed", "error", err.Error())
	}

	logCategory := domain.LogEmailForward
	if decision.Action == filter.ActionDrop {
		logCategory = domain.LogEmailDrop
	}
	if err := a.taskQueue.Enqueue(ctx, domain.TaskLog, domain.LogTaskData{
		Category:   logCategory,
		WorkerName: ev.WorkerName,
		Message:    decision.Reason,
		RuleID:     ruleIDPtr,
	}); err != nil {
		logger.Warn("ingest: log enqueue failed", "error", err.Error())
	}

	if err := a.taskQueue.Enqueue(ctx, domain.TaskWatch, domain.WatchTaskData{
		From:       ev.From,
		To:         ev.To,
		Subject:    ev.Subject,
		WorkerName: ev.WorkerName,
	}); err != nil {
		logger.Warn("ingest: watch enqueue failed", "error", err.Error())
	}

	if err := a.taskQueue.Enqueue(ctx, domain.TaskCampaign, domain.CampaignTaskData{
		From:       ev.From,
		Subject:    ev.Subject,
		Recipient:  ev.To,
		ReceivedAt: ev.Timestamp,
		WorkerName: ev.WorkerName,
	}); err != nil {
		logger.Warn("ingest: campaign enqueue failed", "error", err.Error())
	}

	if err := a.taskQueue.Enqueue(ctx, domain.TaskMonitoring, domain.MonitoringTaskData{
		Sender:     ev.From,
		Subject:    ev.Subject,
		Recipient:  ev.To,
		ReceivedAt: ev.Timestamp,
		WorkerName: ev.WorkerName,
	}); err != nil {
		logger.Warn("ingest: monitoring enqueue failed", "error", err.Error())
	}
}
