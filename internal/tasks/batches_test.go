package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/filterplane/internal/domain"
)

type fakeStatsStore struct {
	upserts    []domain.RuleStats
	lastHitIDs []string
}

func (f *fakeStatsStore) UpsertStats(ctx context.Context, s domain.RuleStats) error {
	f.upserts = append(f.upserts, s)
	return nil
}
func (f *fakeStatsStore) TouchLastHit(ctx context.Context, id string, at time.Time) error {
	f.lastHitIDs = append(f.lastHitIDs, id)
	return nil
}

type fakeLogStore struct{ rows []domain.LogTaskData }

func (f *fakeLogStore) BulkInsert(ctx context.Context, rows []domain.LogTaskData) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func TestProcessStatsAggregatesPerRuleAndGlobal(t *testing.T) {
	statsStore := &fakeStatsStore{}
	p := &Processor{statsStore: statsStore}

	envs := []domain.TaskEnvelope{
		{Type: domain.TaskStats, Data: domain.StatsTaskData{RuleID: "r1", Processed: true}},
		{Type: domain.TaskStats, Data: domain.StatsTaskData{RuleID: "r1", Dropped: true}},
		{Type: domain.TaskStats, Data: domain.StatsTaskData{RuleID: "r2", Processed: true}},
	}

	require.NoError(t, p.processStats(context.Background(), envs))
	require.Len(t, statsStore.upserts, 3) // r1, r2, plus one global increment
	assert.Contains(t, statsStore.lastHitIDs, "r1")
	assert.Contains(t, statsStore.lastHitIDs, "r2")
}

func TestProcessLogDefaultsWorkerNameToGlobal(t *testing.T) {
	logStore := &fakeLogStore{}
	p := &Processor{logStore: logStore}

	envs := []domain.TaskEnvelope{
		{Type: domain.TaskLog, Data: domain.LogTaskData{Category: domain.LogSystem}},
	}
	require.NoError(t, p.processLog(context.Background(), envs))
	require.Len(t, logStore.rows, 1)
	assert.Equal(t, domain.GlobalWorker, logStore.rows[0].WorkerName)
}
