package tasks

import (
	"context"
	"sort"
	"time"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/dynamic"
	"github.com/ignite/filterplane/internal/monitoring"
	"github.com/ignite/filterplane/internal/platform/logger"
)

func monitoringEmail(data domain.MonitoringTaskData) monitoring.Email {
	return monitoring.Email{
		Sender:     data.Sender,
		Subject:    data.Subject,
		Recipient:  data.Recipient,
		ReceivedAt: data.ReceivedAt,
		WorkerName: data.WorkerName,
	}
}

// processStats sums per-rule processed/deleted and global
// forwarded/deleted counts, writing one increment per rule and one
// global increment (rule id "") carrying both global counts, then
// touches last_hit_at once per rule touched.
func (p *Processor) processStats(ctx context.Context, envs []domain.TaskEnvelope) error {
	type perRule struct{ processed, deleted int64 }
	byRule := make(map[string]*perRule)
	var globalForwarded, globalDeleted int64

	for _, env := range envs {
		data, ok := env.Data.(domain.StatsTaskData)
		if !ok {
			continue
		}
		if data.Processed {
			globalForwarded++
		}
		if data.Dropped {
			globalDeleted++
		}
		if data.RuleID == "" {
			continue
		}
		r, ok := byRule[data.RuleID]
		if !ok {
			r = &perRule{}
			byRule[data.RuleID] = r
		}
		if data.Processed {
			r.processed++
		}
		if data.Dropped {
			r.deleted++
		}
	}

	now := time.Now().UTC()
	for ruleID, r := range byRule {
		if err := p.statsStore.UpsertStats(ctx, domain.RuleStats{
			RuleID: ruleID, TotalProcessed: r.processed, DeletedCount: r.deleted, LastUpdated: now,
		}); err != nil {
			logger.Error("stats batch: upsert failed", "rule_id", ruleID, "error", err.Error())
			continue
		}
		if err := p.statsStore.TouchLastHit(ctx, ruleID, now); err != nil {
			logger.Error("stats batch: touch last hit failed", "rule_id", ruleID, "error", err.Error())
		}
	}

	if globalForwarded > 0 || globalDeleted > 0 {
		if err := p.statsStore.UpsertStats(ctx, domain.RuleStats{
			RuleID: "", TotalProcessed: globalForwarded, DeletedCount: globalDeleted, LastUpdated: now,
		}); err != nil {
			logger.Error("stats batch: global upsert failed", "error", err.Error())
		}
	}
	return nil
}

// processLog bulk-inserts log rows, defaulting worker_name to
// "global" where the producer left it empty.
func (p *Processor) processLog(ctx context.Context, envs []domain.TaskEnvelope) error {
	rows := make([]domain.LogTaskData, 0, len(envs))
	for _, env := range envs {
		data, ok := env.Data.(domain.LogTaskData)
		if !ok {
			continue
		}
		if data.WorkerName == "" {
			data.WorkerName = domain.GlobalWorker
		}
		rows = append(rows, data)
	}
	if len(rows) == 0 {
		return nil
	}
	return p.logStore.BulkInsert(ctx, rows)
}

// processWatch re-matches each envelope against enabled watch rules
// using C1 semantics and aggregates hit counts per rule before a
// single bulk increment per rule.
func (p *Processor) processWatch(ctx context.Context, envs []domain.TaskEnvelope) error {
	watchRules := p.rulesCache.ByCategory(domain.CategoryWatch)
	if len(watchRules) == 0 {
		return nil
	}

	patterns := make([]string, len(watchRules))
	for i, r := range watchRules {
		patterns[i] = r.Pattern
	}

	hits := make(map[string]int64)
	for _, env := range envs {
		data, ok := env.Data.(domain.WatchTaskData)
		if !ok {
			continue
		}
		idx, err := p.matcherSvc.FindFirst(patterns, data.Subject, domain.ModeContains)
		if err != nil || idx < 0 {
			continue
		}
		hits[watchRules[idx].ID]++
	}

	for ruleID, count := range hits {
		if err := p.watchStore.BulkIncrementHits(ctx, ruleID, count); err != nil {
			logger.Error("watch batch: increment failed", "rule_id", ruleID, "error", err.Error())
		}
	}
	return nil
}

// processDynamic calls C4 trackSubject per envelope in enqueuedAt
// order.
func (p *Processor) processDynamic(ctx context.Context, envs []domain.TaskEnvelope) error {
	sort.Slice(envs, func(i, j int) bool { return envs[i].EnqueuedAt.Before(envs[j].EnqueuedAt) })
	for _, env := range envs {
		data, ok := env.Data.(domain.DynamicTaskData)
		if !ok {
			continue
		}
		if _, err := p.dynamicSvc.TrackSubject(ctx, data.Subject, data.ReceivedAt); err != nil {
			logger.Error("dynamic batch: track subject failed", "error", err.Error())
		}
	}
	return nil
}

// processCampaign calls C6 trackEmailSelective, which skips ignored
// merchants while still bumping their total_emails counter, then
// records the same email against C5's per-merchant subject counters.
func (p *Processor) processCampaign(ctx context.Context, envs []domain.TaskEnvelope) error {
	for _, env := range envs {
		data, ok := env.Data.(domain.CampaignTaskData)
		if !ok {
			continue
		}
		result, err := p.campaign.TrackEmailSelective(ctx, data.From, data.Subject, data.Recipient, data.WorkerName, data.ReceivedAt)
		if err != nil {
			logger.Error("campaign batch: track email failed", "error", err.Error())
			continue
		}
		if p.statsSvc == nil {
			continue
		}
		hash := dynamic.SubjectHash(data.Subject)
		if err := p.statsSvc.Record(ctx, data.Subject, hash, result.Merchant.Domain, data.WorkerName, data.ReceivedAt); err != nil {
			logger.Error("subject stats batch: record failed", "error", err.Error())
		}
	}
	return nil
}

// processMonitoring calls C8 processEmail per envelope.
func (p *Processor) processMonitoring(ctx context.Context, envs []domain.TaskEnvelope) error {
	for _, env := range envs {
		data, ok := env.Data.(domain.MonitoringTaskData)
		if !ok {
			continue
		}
		if _, err := p.monitoring.ProcessEmail(ctx, monitoringEmail(data)); err != nil {
			logger.Error("monitoring batch: process email failed", "error", err.Error())
		}
	}
	return nil
}
