package dynamic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/matcher"
	"github.com/ignite/filterplane/internal/rules"
)

type fakeTracker struct {
	rows   []domain.EmailSubjectTracker
	purged []uint64
}

func (f *fakeTracker) Append(ctx context.Context, row domain.EmailSubjectTracker) error {
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeTracker) inWindow(hash uint64, from, to time.Time) []domain.EmailSubjectTracker {
	var out []domain.EmailSubjectTracker
	for _, r := range f.rows {
		if r.SubjectHash == hash && !r.ReceivedAt.Before(from) && !r.ReceivedAt.After(to) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeTracker) CountInWindow(ctx context.Context, hash uint64, from, to time.Time) (int, error) {
	return len(f.inWindow(hash, from, to)), nil
}

func (f *fakeTracker) FirstNInWindow(ctx context.Context, hash uint64, from, to time.Time, n int) ([]domain.EmailSubjectTracker, error) {
	rows := f.inWindow(hash, from, to)
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (f *fakeTracker) PurgeOlderThan(ctx context.Context, hash uint64, before time.Time) error {
	f.purged = append(f.purged, hash)
	var kept []domain.EmailSubjectTracker
	for _, r := range f.rows {
		if r.SubjectHash == hash && r.ReceivedAt.Before(before) {
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return nil
}

type fakeRuleStore struct {
	rules map[string]domain.FilterRule
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{rules: make(map[string]domain.FilterRule)}
}

func (f *fakeRuleStore) Create(ctx context.Context, rule *domain.FilterRule) error {
	f.rules[rule.ID] = *rule
	return nil
}
func (f *fakeRuleStore) Update(ctx context.Context, rule *domain.FilterRule) error {
	f.rules[rule.ID] = *rule
	return nil
}
func (f *fakeRuleStore) Delete(ctx context.Context, id string) error { delete(f.rules, id); return nil }
func (f *fakeRuleStore) Get(ctx context.Context, id string) (*domain.FilterRule, error) {
	r := f.rules[id]
	return &r, nil
}
func (f *fakeRuleStore) ListByCategory(ctx context.Context, c domain.RuleCategory) ([]domain.FilterRule, error) {
	return nil, nil
}
func (f *fakeRuleStore) ListAll(ctx context.Context) ([]domain.FilterRule, error)        { return nil, nil }
func (f *fakeRuleStore) TouchLastHit(ctx context.Context, id string, at time.Time) error { return nil }
func (f *fakeRuleStore) UpsertStats(ctx context.Context, stats domain.RuleStats) error   { return nil }

func newTestDetector(tracker TrackerStore, cfg domain.DynamicConfig) *Detector {
	svc := rules.NewService(newFakeRuleStore(), rules.NewCache(), matcher.New(), nil)
	return New(tracker, svc, func() domain.DynamicConfig { return cfg })
}

func TestTrackSubjectBelowThresholdReturnsNone(t *testing.T) {
	cfg := domain.DefaultDynamicConfig()
	cfg.ThresholdCount = 5
	d := newTestDetector(&fakeTracker{}, cfg)

	res, err := d.TrackSubject(context.Background(), "limited offer", time.Now())
	require.NoError(t, err)
	assert.Nil(t, res.Rule)
}

func TestTrackSubjectCreatesRuleWhenThresholdsCrossed(t *testing.T) {
	cfg := domain.DefaultDynamicConfig()
	cfg.ThresholdCount = 3
	cfg.TimeSpanThresholdMinutes = 5
	tracker := &fakeTracker{}
	d := newTestDetector(tracker, cfg)

	base := time.Now()
	subject := "Act now limited offer"
	ctx := context.Background()

	_, _ = d.TrackSubject(ctx, subject, base)
	_, _ = d.TrackSubject(ctx, subject, base.Add(time.Minute))
	res, err := d.TrackSubject(ctx, subject, base.Add(2*time.Minute))

	require.NoError(t, err)
	require.NotNil(t, res.Rule)
	assert.True(t, res.Created)
	assert.Equal(t, domain.CategoryDynamic, res.Rule.Category)
	assert.Equal(t, subject, res.Rule.Pattern)
	assert.Equal(t, 2, res.EmailsForwardedBeforeBlock)
}

func TestTrackSubjectTimeSpanTooWideDoesNotCreate(t *testing.T) {
	cfg := domain.DefaultDynamicConfig()
	cfg.ThresholdCount = 3
	cfg.TimeSpanThresholdMinutes = 1
	tracker := &fakeTracker{}
	d := newTestDetector(tracker, cfg)

	base := time.Now()
	subject := "Act now limited offer"
	ctx := context.Background()

	_, _ = d.TrackSubject(ctx, subject, base)
	_, _ = d.TrackSubject(ctx, subject, base.Add(10*time.Minute))
	res, err := d.TrackSubject(ctx, subject, base.Add(20*time.Minute))

	require.NoError(t, err)
	assert.Nil(t, res.Rule)
}

func TestTrackSubjectDisabledIsNoop(t *testing.T) {
	cfg := domain.DefaultDynamicConfig()
	cfg.Enabled = false
	d := newTestDetector(&fakeTracker{}, cfg)

	res, err := d.TrackSubject(context.Background(), "anything", time.Now())
	require.NoError(t, err)
	assert.Nil(t, res.Rule)
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	lastHit := now.Add(-100 * time.Hour)
	rule := domain.FilterRule{CreatedAt: now.Add(-200 * time.Hour), LastHitAt: &lastHit}
	assert.True(t, IsExpired(rule, 48, now))

	recent := now.Add(-1 * time.Hour)
	rule2 := domain.FilterRule{CreatedAt: now.Add(-200 * time.Hour), LastHitAt: &recent}
	assert.False(t, IsExpired(rule2, 48, now))
}

func TestSubjectHashStableAcrossCaseAndTrim(t *testing.T) {
	assert.Equal(t, SubjectHash("Hello World"), SubjectHash("  hello world  "))
	assert.NotEqual(t, SubjectHash("hello"), SubjectHash("world"))
}
