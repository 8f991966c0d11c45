package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/filterplane/internal/campaign"
	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/dynamic"
	"github.com/ignite/filterplane/internal/matcher"
	"github.com/ignite/filterplane/internal/monitoring"
	"github.com/ignite/filterplane/internal/platform/dberr"
	"github.com/ignite/filterplane/internal/rules"
)

type fakeWatchStore struct{ increments map[string]int64 }

func (f *fakeWatchStore) BulkIncrementHits(ctx context.Context, ruleID string, count int64) error {
	if f.increments == nil {
		f.increments = make(map[string]int64)
	}
	f.increments[ruleID] += count
	return nil
}

func TestProcessWatchAggregatesHitsPerRule(t *testing.T) {
	cache := rules.NewCache()
	cache.Put(domain.FilterRule{ID: "w1", Category: domain.CategoryWatch, Pattern: "refund", MatchMode: domain.ModeContains, Enabled: true})
	watchStore := &fakeWatchStore{}
	p := &Processor{rulesCache: cache, matcherSvc: matcher.New(), watchStore: watchStore}

	envs := []domain.TaskEnvelope{
		{Type: domain.TaskWatch, Data: domain.WatchTaskData{Subject: "your refund is processed"}},
		{Type: domain.TaskWatch, Data: domain.WatchTaskData{Subject: "Refund issued today"}},
		{Type: domain.TaskWatch, Data: domain.WatchTaskData{Subject: "totally unrelated"}},
	}

	require.NoError(t, p.processWatch(context.Background(), envs))
	assert.Equal(t, int64(2), watchStore.increments["w1"])
}

// fakeTrackerStore records Append calls in invocation order so tests can
// assert processDynamic replays envelopes oldest-enqueued-first.
type fakeTrackerStore struct {
	appendedSubjects []string
}

func (f *fakeTrackerStore) Append(ctx context.Context, row domain.EmailSubjectTracker) error {
	f.appendedSubjects = append(f.appendedSubjects, row.Subject)
	return nil
}
func (f *fakeTrackerStore) CountInWindow(ctx context.Context, hash uint64, from, to time.Time) (int, error) {
	return 0, nil
}
func (f *fakeTrackerStore) FirstNInWindow(ctx context.Context, hash uint64, from, to time.Time, n int) ([]domain.EmailSubjectTracker, error) {
	return nil, nil
}
func (f *fakeTrackerStore) PurgeOlderThan(ctx context.Context, hash uint64, before time.Time) error {
	return nil
}

type fakeRuleStoreForDynamic struct{}

func (fakeRuleStoreForDynamic) Create(ctx context.Context, rule *domain.FilterRule) error { return nil }
func (fakeRuleStoreForDynamic) Update(ctx context.Context, rule *domain.FilterRule) error { return nil }
func (fakeRuleStoreForDynamic) Delete(ctx context.Context, id string) error               { return nil }
func (fakeRuleStoreForDynamic) Get(ctx context.Context, id string) (*domain.FilterRule, error) {
	return nil, dberr.ErrNotFound
}
func (fakeRuleStoreForDynamic) ListByCategory(ctx context.Context, category domain.RuleCategory) ([]domain.FilterRule, error) {
	return nil, nil
}
func (fakeRuleStoreForDynamic) ListAll(ctx context.Context) ([]domain.FilterRule, error) {
	return nil, nil
}
func (fakeRuleStoreForDynamic) TouchLastHit(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (fakeRuleStoreForDynamic) UpsertStats(ctx context.Context, stats domain.RuleStats) error {
	return nil
}

func TestProcessDynamicReplaysInEnqueuedOrder(t *testing.T) {
	tracker := &fakeTrackerStore{}
	svc := rules.NewService(fakeRuleStoreForDynamic{}, rules.NewCache(), matcher.New(), nil)
	cfg := domain.DefaultDynamicConfig()
	cfg.Enabled = true
	det := dynamic.New(tracker, svc, func() domain.DynamicConfig { return cfg })
	p := &Processor{dynamicSvc: det}

	now := time.Now()
	envs := []domain.TaskEnvelope{
		{Type: domain.TaskDynamic, EnqueuedAt: now.Add(2 * time.Second), Data: domain.DynamicTaskData{Subject: "second", ReceivedAt: now}},
		{Type: domain.TaskDynamic, EnqueuedAt: now, Data: domain.DynamicTaskData{Subject: "first", ReceivedAt: now}},
		{Type: domain.TaskDynamic, EnqueuedAt: now.Add(time.Second), Data: domain.DynamicTaskData{Subject: "middle", ReceivedAt: now}},
	}

	require.NoError(t, p.processDynamic(context.Background(), envs))
	assert.Equal(t, []string{"first", "middle", "second"}, tracker.appendedSubjects)
}

type fakeCampaignStoreForTasks struct {
	merchants    map[string]domain.Merchant
	campaigns    map[string]domain.Campaign
	emails       []domain.CampaignEmail
	paths        []domain.RecipientPath
	workerStatus map[string]domain.AnalysisStatus
}

func newFakeCampaignStoreForTasks() *fakeCampaignStoreForTasks {
	return &fakeCampaignStoreForTasks{
		merchants:    make(map[string]domain.Merchant),
		campaigns:    make(map[string]domain.Campaign),
		workerStatus: make(map[string]domain.AnalysisStatus),
	}
}
func (f *fakeCampaignStoreForTasks) key(merchantID, hash string) string {
	return merchantID + ":" + hash
}
func (f *fakeCampaignStoreForTasks) GetMerchantByDomain(ctx context.Context, rootDomain string) (*domain.Merchant, error) {
	m, ok := f.merchants[rootDomain]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &m, nil
}
func (f *fakeCampaignStoreForTasks) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	f.merchants[m.Domain] = *m
	return nil
}
func (f *fakeCampaignStoreForTasks) IncrementMerchantCounters(ctx context.Context, merchantID string, emails, campaigns int64) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) GetCampaignBySubjectHash(ctx context.Context, merchantID, subjectHash string) (*domain.Campaign, error) {
	c, ok := f.campaigns[f.key(merchantID, subjectHash)]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &c, nil
}
func (f *fakeCampaignStoreForTasks) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	f.campaigns[f.key(c.MerchantID, c.SubjectHash)] = *c
	return nil
}
func (f *fakeCampaignStoreForTasks) TouchCampaign(ctx context.Context, campaignID string, lastSeenAt time.Time) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) AppendCampaignEmail(ctx context.Context, e domain.CampaignEmail) error {
	f.emails = append(f.emails, e)
	return nil
}
func (f *fakeCampaignStoreForTasks) MaxSequenceOrder(ctx context.Context, merchantID, recipient string) (int, error) {
	return -1, nil
}
func (f *fakeCampaignStoreForTasks) HasRecipientPath(ctx context.Context, merchantID, recipient, campaignID string) (bool, error) {
	return false, nil
}
func (f *fakeCampaignStoreForTasks) AppendRecipientPath(ctx context.Context, p domain.RecipientPath) error {
	f.paths = append(f.paths, p)
	return nil
}
func (f *fakeCampaignStoreForTasks) IncrementUniqueRecipients(ctx context.Context, campaignID string) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) MerchantWorkerStatus(ctx context.Context, merchantID, workerName string) (domain.AnalysisStatus, error) {
	if s, ok := f.workerStatus[merchantID+":"+workerName]; ok {
		return s, nil
	}
	return domain.StatusPending, nil
}
func (f *fakeCampaignStoreForTasks) PathsForMerchant(ctx context.Context, merchantID string, workers []string) ([]domain.RecipientPath, error) {
	return nil, nil
}
func (f *fakeCampaignStoreForTasks) DeletePathsForMerchant(ctx context.Context, merchantID string) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) CampaignEmailsForMerchant(ctx context.Context, merchantID string) ([]domain.CampaignEmail, error) {
	return nil, nil
}
func (f *fakeCampaignStoreForTasks) CampaignsForMerchant(ctx context.Context, merchantID string) ([]domain.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignStoreForTasks) SetPathNewUser(ctx context.Context, merchantID, recipient, campaignID string, isNewUser bool, firstRootCampaignID *string) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) ClearNewUserFlags(ctx context.Context, merchantID string) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) RecomputeCampaignTotals(ctx context.Context, campaignID string) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) RecomputeMerchantTotals(ctx context.Context, merchantID string) error {
	return nil
}
func (f *fakeCampaignStoreForTasks) AllMerchantIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestProcessCampaignTracksEachEnvelope(t *testing.T) {
	store := newFakeCampaignStoreForTasks()
	engine := campaign.NewEngine(store, nil)
	p := &Processor{campaign: engine}

	envs := []domain.TaskEnvelope{
		{Type: domain.TaskCampaign, Data: domain.CampaignTaskData{
			From: "promo@shop.example.com", Subject: "sale", Recipient: "a@b.com",
			WorkerName: "global", ReceivedAt: time.Now(),
		}},
	}

	require.NoError(t, p.processCampaign(context.Background(), envs))
	assert.Len(t, store.emails, 1)
	assert.Len(t, store.paths, 1)
}

type fakeMonitoringRuleStore struct {
	rules map[string]domain.MonitoringRule
}

func (f *fakeMonitoringRuleStore) Create(ctx context.Context, r *domain.MonitoringRule) error {
	f.rules[r.ID] = *r
	return nil
}
func (f *fakeMonitoringRuleStore) Get(ctx context.Context, id string) (*domain.MonitoringRule, error) {
	r, ok := f.rules[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &r, nil
}
func (f *fakeMonitoringRuleStore) ListEnabled(ctx context.Context) ([]domain.MonitoringRule, error) {
	var out []domain.MonitoringRule
	for _, r := range f.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeMonitoringSignalStore struct{ states map[string]domain.SignalState }

func (f *fakeMonitoringSignalStore) Get(ctx context.Context, ruleID string) (*domain.SignalState, error) {
	s, ok := f.states[ruleID]
	if !ok {
		s = domain.SignalState{RuleID: ruleID, State: domain.SignalDead}
	}
	return &s, nil
}
func (f *fakeMonitoringSignalStore) Upsert(ctx context.Context, state domain.SignalState) error {
	f.states[state.RuleID] = state
	return nil
}
func (f *fakeMonitoringSignalStore) ListAll(ctx context.Context) ([]domain.SignalState, error) {
	return nil, nil
}

type fakeMonitoringHitLogStore struct{ hits []domain.HitLog }

func (f *fakeMonitoringHitLogStore) Append(ctx context.Context, hit domain.HitLog) error {
	f.hits = append(f.hits, hit)
	return nil
}
func (f *fakeMonitoringHitLogStore) CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error) {
	return 0, nil
}

type fakeMonitoringAlertStore struct{ alerts []domain.Alert }

func (f *fakeMonitoringAlertStore) Create(ctx context.Context, a domain.Alert) error {
	f.alerts = append(f.alerts, a)
	return nil
}

func TestProcessMonitoringDispatchesConvertedEmail(t *testing.T) {
	rulesStore := &fakeMonitoringRuleStore{rules: map[string]domain.MonitoringRule{
		"r1": {ID: "r1", SubjectPattern: "invoice", MatchMode: domain.ModeContains, WorkerScope: domain.GlobalWorker, Enabled: true},
	}}
	signals := monitoring.NewSignalService(rulesStore, &fakeMonitoringSignalStore{states: map[string]domain.SignalState{}}, &fakeMonitoringHitLogStore{})
	alerts := &fakeMonitoringAlertStore{}
	mp := monitoring.NewProcessor(rulesStore, signals, alerts, matcher.New())
	p := &Processor{monitoring: mp}

	envs := []domain.TaskEnvelope{
		{Type: domain.TaskMonitoring, Data: domain.MonitoringTaskData{
			Sender: "a@b.com", Subject: "your invoice #1", Recipient: "c@d.com",
			ReceivedAt: time.Now(), WorkerName: domain.GlobalWorker,
		}},
	}

	require.NoError(t, p.processMonitoring(context.Background(), envs))
}
