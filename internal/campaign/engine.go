package campaign

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
)

// Engine is the campaign-analytics core (C6): merchant identification,
// campaign dedup, recipient-path tracking, and the derived graph
// analyses built on top of it.
type Engine struct {
	store     Store
	extractor *Extractor
}

// NewEngine wires an Engine against a Store and a TLDSet.
func NewEngine(store Store, tlds *TLDSet) *Engine {
	return &Engine{store: store, extractor: NewExtractor(tlds)}
}

// UpsertResult reports what TrackEmail touched, for callers (mainly the
// async task processor) that want to log or emit metrics on new
// merchants/campaigns.
type UpsertResult struct {
	Merchant    domain.Merchant
	MerchantNew bool
	Campaign    domain.Campaign
	CampaignNew bool
}

// subjectHashHex is the sha-256 hex digest used to dedup campaigns by
// (merchant, subject). This is deliberately the cryptographic hash,
// unlike the dynamic-rule detector's fast non-cryptographic subject
// hash (internal/dynamic.SubjectHash): the two layers serve different
// purposes and are not meant to agree.
func subjectHashHex(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

// TrackEmail records one inbound email against the campaign graph:
// merchant upsert, campaign upsert, append the email, and append a
// recipient-path entry on the recipient's first sight of this
// campaign.
func (e *Engine) TrackEmail(ctx context.Context, from, subject, recipient, workerName string, receivedAt time.Time) (UpsertResult, error) {
	return e.trackEmail(ctx, from, subject, recipient, workerName, receivedAt, false)
}

// TrackEmailSelective is TrackEmail's variant invoked by the campaign
// task processor: it still bumps merchant total_emails, but skips
// campaign/path bookkeeping for merchants an admin has marked ignored.
func (e *Engine) TrackEmailSelective(ctx context.Context, from, subject, recipient, workerName string, receivedAt time.Time) (UpsertResult, error) {
	return e.trackEmail(ctx, from, subject, recipient, workerName, receivedAt, true)
}

func (e *Engine) trackEmail(ctx context.Context, from, subject, recipient, workerName string, receivedAt time.Time, selective bool) (UpsertResult, error) {
	var result UpsertResult

	rootDomain, ok := e.extractor.ExtractDomain(from)
	if !ok {
		return result, fmt.Errorf("campaign: malformed sender address %q", from)
	}

	merchant, isNewMerchant, err := e.upsertMerchant(ctx, rootDomain)
	if err != nil {
		return result, fmt.Errorf("campaign: upsert merchant: %w", err)
	}
	result.Merchant = merchant
	result.MerchantNew = isNewMerchant

	if selective {
		status, err := e.store.MerchantWorkerStatus(ctx, merchant.ID, workerName)
		if err != nil {
			return result, fmt.Errorf("campaign: merchant worker status: %w", err)
		}
		if status == domain.StatusIgnored {
			if err := e.store.IncrementMerchantCounters(ctx, merchant.ID, 1, 0); err != nil {
				return result, fmt.Errorf("campaign: bump ignored merchant counters: %w", err)
			}
			return result, nil
		}
	}

	c, isNewCampaign, err := e.upsertCampaign(ctx, merchant.ID, subject, receivedAt)
	if err != nil {
		return result, fmt.Errorf("campaign: upsert campaign: %w", err)
	}
	result.Campaign = c
	result.CampaignNew = isNewCampaign

	if err := e.store.AppendCampaignEmail(ctx, domain.CampaignEmail{
		ID:         uuid.New().String(),
		CampaignID: c.ID,
		Recipient:  recipient,
		ReceivedAt: receivedAt,
		WorkerName: workerName,
	}); err != nil {
		return result, fmt.Errorf("campaign: append campaign email: %w", err)
	}

	if err := e.appendRecipientPath(ctx, merchant.ID, recipient, c.ID, receivedAt); err != nil {
		return result, fmt.Errorf("campaign: append recipient path: %w", err)
	}

	return result, nil
}

func (e *Engine) upsertMerchant(ctx context.Context, rootDomain string) (domain.Merchant, bool, error) {
	existing, err := e.store.GetMerchantByDomain(ctx, rootDomain)
	if err == nil {
		return *existing, false, nil
	}

	now := time.Now().UTC()
	m := domain.Merchant{
		ID:             uuid.New().String(),
		Domain:         rootDomain,
		AnalysisStatus: domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.CreateMerchant(ctx, &m); err != nil {
		return domain.Merchant{}, false, err
	}
	return m, true, nil
}

func (e *Engine) upsertCampaign(ctx context.Context, merchantID, subject string, receivedAt time.Time) (domain.Campaign, bool, error) {
	hash := subjectHashHex(subject)

	existing, err := e.store.GetCampaignBySubjectHash(ctx, merchantID, hash)
	if err == nil {
		newLastSeen := existing.LastSeenAt
		if receivedAt.After(newLastSeen) {
			newLastSeen = receivedAt
		}
		if err := e.store.TouchCampaign(ctx, existing.ID, newLastSeen); err != nil {
			return domain.Campaign{}, false, err
		}
		existing.TotalEmails++
		existing.LastSeenAt = newLastSeen
		return *existing, false, nil
	}

	c := domain.Campaign{
		ID:          uuid.New().String(),
		MerchantID:  merchantID,
		Subject:     subject,
		SubjectHash: hash,
		TotalEmails: 1,
		FirstSeenAt: receivedAt,
		LastSeenAt:  receivedAt,
	}
	if err := e.store.CreateCampaign(ctx, &c); err != nil {
		return domain.Campaign{}, false, err
	}
	if err := e.store.IncrementMerchantCounters(ctx, merchantID, 0, 1); err != nil {
		return domain.Campaign{}, false, err
	}
	return c, true, nil
}

func (e *Engine) appendRecipientPath(ctx context.Context, merchantID, recipient, campaignID string, receivedAt time.Time) error {
	exists, err := e.store.HasRecipientPath(ctx, merchantID, recipient, campaignID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	maxSeq, err := e.store.MaxSequenceOrder(ctx, merchantID, recipient)
	if err != nil {
		return err
	}

	if err := e.store.AppendRecipientPath(ctx, domain.RecipientPath{
		MerchantID:      merchantID,
		Recipient:       recipient,
		CampaignID:      campaignID,
		SequenceOrder:   maxSeq + 1,
		FirstReceivedAt: receivedAt,
	}); err != nil {
		return err
	}

	return e.store.IncrementUniqueRecipients(ctx, campaignID)
}
