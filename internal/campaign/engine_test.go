package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/platform/dberr"
)

type fakeCampaignStore struct {
	merchants    map[string]domain.Merchant // by domain
	campaigns    map[string]domain.Campaign // by merchantID+hash
	emails       []domain.CampaignEmail
	paths        []domain.RecipientPath
	workerStatus map[string]domain.AnalysisStatus
}

func newFakeCampaignStore() *fakeCampaignStore {
	return &fakeCampaignStore{
		merchants:    make(map[string]domain.Merchant),
		campaigns:    make(map[string]domain.Campaign),
		workerStatus: make(map[string]domain.AnalysisStatus),
	}
}

func (f *fakeCampaignStore) GetMerchantByDomain(ctx context.Context, rootDomain string) (*domain.Merchant, error) {
	m, ok := f.merchants[rootDomain]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &m, nil
}
func (f *fakeCampaignStore) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	f.merchants[m.Domain] = *m
	return nil
}
func (f *fakeCampaignStore) IncrementMerchantCounters(ctx context.Context, merchantID string, emails, campaigns int64) error {
	for d, m := range f.merchants {
		if m.ID == merchantID {
			m.TotalEmails += emails
			m.TotalCampaigns += campaigns
			f.merchants[d] = m
		}
	}
	return nil
}
func (f *fakeCampaignStore) campaignKey(merchantID, hash string) string {
	return merchantID + ":" + hash
}
func (f *fakeCampaignStore) GetCampaignBySubjectHash(ctx context.Context, merchantID, subjectHash string) (*domain.Campaign, error) {
	c, ok := f.campaigns[f.campaignKey(merchantID, subjectHash)]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &c, nil
}
func (f *fakeCampaignStore) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	f.campaigns[f.campaignKey(c.MerchantID, c.SubjectHash)] = *c
	return nil
}
func (f *fakeCampaignStore) TouchCampaign(ctx context.Context, campaignID string, lastSeenAt time.Time) error {
	for k, c := range f.campaigns {
		if c.ID == campaignID {
			c.TotalEmails++
			c.LastSeenAt = lastSeenAt
			f.campaigns[k] = c
		}
	}
	return nil
}
func (f *fakeCampaignStore) AppendCampaignEmail(ctx context.Context, e domain.CampaignEmail) error {
	f.emails = append(f.emails, e)
	return nil
}
func (f *fakeCampaignStore) MaxSequenceOrder(ctx context.Context, merchantID, recipient string) (int, error) {
	max := -1
	for _, p := range f.paths {
		if p.MerchantID == merchantID && p.Recipient == recipient && p.SequenceOrder > max {
			max = p.SequenceOrder
		}
	}
	return max, nil
}
func (f *fakeCampaignStore) HasRecipientPath(ctx context.Context, merchantID, recipient, campaignID string) (bool, error) {
	for _, p := range f.paths {
		if p.MerchantID == merchantID && p.Recipient == recipient && p.CampaignID == campaignID {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeCampaignStore) AppendRecipientPath(ctx context.Context, p domain.RecipientPath) error {
	f.paths = append(f.paths, p)
	return nil
}
func (f *fakeCampaignStore) IncrementUniqueRecipients(ctx context.Context, campaignID string) error {
	for k, c := range f.campaigns {
		if c.ID == campaignID {
			c.UniqueRecipients++
			f.campaigns[k] = c
		}
	}
	return nil
}
func (f *fakeCampaignStore) MerchantWorkerStatus(ctx context.Context, merchantID, workerName string) (domain.AnalysisStatus, error) {
	if s, ok := f.workerStatus[merchantID+":"+workerName]; ok {
		return s, nil
	}
	return domain.StatusPending, nil
}
func (f *fakeCampaignStore) PathsForMerchant(ctx context.Context, merchantID string, workers []string) ([]domain.RecipientPath, error) {
	var out []domain.RecipientPath
	for _, p := range f.paths {
		if p.MerchantID == merchantID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeCampaignStore) DeletePathsForMerchant(ctx context.Context, merchantID string) error {
	var kept []domain.RecipientPath
	for _, p := range f.paths {
		if p.MerchantID != merchantID {
			kept = append(kept, p)
		}
	}
	f.paths = kept
	return nil
}
func (f *fakeCampaignStore) CampaignEmailsForMerchant(ctx context.Context, merchantID string) ([]domain.CampaignEmail, error) {
	var campaignIDs = make(map[string]bool)
	for k, c := range f.campaigns {
		if c.MerchantID == merchantID {
			campaignIDs[f.campaigns[k].ID] = true
		}
	}
	var out []domain.CampaignEmail
	for _, e := range f.emails {
		if campaignIDs[e.CampaignID] {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeCampaignStore) CampaignsForMerchant(ctx context.Context, merchantID string) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range f.campaigns {
		if c.MerchantID == merchantID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeCampaignStore) SetPathNewUser(ctx context.Context, merchantID, recipient, campaignID string, isNewUser bool, firstRootCampaignID *string) error {
	for i, p := range f.paths {
		if p.MerchantID == merchantID && p.Recipient == recipient && p.CampaignID == campaignID {
			f.paths[i].IsNewUser = isNewUser
			f.paths[i].FirstRootCampaign = firstRootCampaignID
		}
	}
	return nil
}
func (f *fakeCampaignStore) ClearNewUserFlags(ctx context.Context, merchantID string) error {
	for i, p := range f.paths {
		if p.MerchantID == merchantID {
			f.paths[i].IsNewUser = false
			f.paths[i].FirstRootCampaign = nil
		}
	}
	return nil
}
func (f *fakeCampaignStore) RecomputeCampaignTotals(ctx context.Context, campaignID string) error {
	for k, c := range f.campaigns {
		if c.ID != campaignID {
			continue
		}
		var total int64
		recipients := make(map[string]bool)
		for _, e := range f.emails {
			if e.CampaignID == campaignID {
				total++
				recipients[e.Recipient] = true
			}
		}
		c.TotalEmails = total
		c.UniqueRecipients = int64(len(recipients))
		f.campaigns[k] = c
	}
	return nil
}
func (f *fakeCampaignStore) RecomputeMerchantTotals(ctx context.Context, merchantID string) error {
	var totalEmails, totalCampaigns int64
	for _, c := range f.campaigns {
		if c.MerchantID == merchantID {
			totalEmails += c.TotalEmails
			totalCampaigns++
		}
	}
	for d, m := range f.merchants {
		if m.ID == merchantID {
			m.TotalEmails = totalEmails
			m.TotalCampaigns = totalCampaigns
			f.merchants[d] = m
		}
	}
	return nil
}
func (f *fakeCampaignStore) AllMerchantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for _, m := range f.merchants {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func TestTrackEmailCreatesMerchantAndCampaign(t *testing.T) {
	store := newFakeCampaignStore()
	e := NewEngine(store, nil)

	result, err := e.TrackEmail(context.Background(), "promo@shop.example.co.uk", "Flash sale", "user@gmail.com", "global", time.Now())
	require.NoError(t, err)
	assert.True(t, result.MerchantNew)
	assert.True(t, result.CampaignNew)
	assert.Equal(t, "example.co.uk", result.Merchant.Domain)
	assert.Len(t, store.paths, 1)
	assert.Equal(t, 0, store.paths[0].SequenceOrder)
}

func TestTrackEmailSecondEmailSameCampaignBumpsTotals(t *testing.T) {
	store := newFakeCampaignStore()
	e := NewEngine(store, nil)
	ctx := context.Background()

	_, err := e.TrackEmail(ctx, "promo@shop.example.com", "Flash sale", "user@gmail.com", "global", time.Now())
	require.NoError(t, err)

	result, err := e.TrackEmail(ctx, "promo@shop.example.com", "Flash sale", "other@gmail.com", "global", time.Now())
	require.NoError(t, err)
	assert.False(t, result.CampaignNew)
	assert.EqualValues(t, 2, result.Campaign.TotalEmails)
	assert.Len(t, store.paths, 2)
}

func TestTrackEmailMalformedSenderErrors(t *testing.T) {
	store := newFakeCampaignStore()
	e := NewEngine(store, nil)
	_, err := e.TrackEmail(context.Background(), "not-an-email", "subject", "to@x.com", "global", time.Now())
	assert.Error(t, err)
}

func TestTrackEmailSelectiveSkipsIgnoredMerchant(t *testing.T) {
	store := newFakeCampaignStore()
	e := NewEngine(store, nil)
	ctx := context.Background()

	_, err := e.TrackEmail(ctx, "a@shop.com", "first", "u1@x.com", "global", time.Now())
	require.NoError(t, err)

	var merchantID string
	for _, m := range store.merchants {
		merchantID = m.ID
	}
	store.workerStatus[merchantID+":global"] = domain.StatusIgnored

	result, err := e.TrackEmailSelective(ctx, "a@shop.com", "second subject", "u2@x.com", "global", time.Now())
	require.NoError(t, err)
	assert.True(t, result.Campaign.ID == "") // campaign bookkeeping skipped
}

func TestRecalculateAllNewUsersMarksEarliestRoot(t *testing.T) {
	store := newFakeCampaignStore()
	merchantID := uuid.New().String()
	rootCampaign := domain.Campaign{ID: "root", MerchantID: merchantID, IsRoot: true}
	store.campaigns[store.campaignKey(merchantID, "root-hash")] = rootCampaign

	store.paths = []domain.RecipientPath{
		{MerchantID: merchantID, Recipient: "r1", CampaignID: "other", SequenceOrder: 0},
		{MerchantID: merchantID, Recipient: "r1", CampaignID: "root", SequenceOrder: 1},
	}

	e := NewEngine(store, nil)
	require.NoError(t, e.RecalculateAllNewUsers(context.Background(), merchantID))

	found := false
	for _, p := range store.paths {
		if p.CampaignID == "root" && p.Recipient == "r1" {
			assert.True(t, p.IsNewUser)
			found = true
		}
	}
	assert.True(t, found)
}
