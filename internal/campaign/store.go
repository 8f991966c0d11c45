package campaign

import (
	"context"
	"time"

	"github.com/ignite/filterplane/internal/domain"
)

// Store is the persistence boundary for merchants, campaigns, campaign
// emails, and recipient paths. The postgres implementation lives in
// internal/storage/postgres.
type Store interface {
	GetMerchantByDomain(ctx context.Context, rootDomain string) (*domain.Merchant, error)
	CreateMerchant(ctx context.Context, m *domain.Merchant) error
	IncrementMerchantCounters(ctx context.Context, merchantID string, emails, campaigns int64) error

	GetCampaignBySubjectHash(ctx context.Context, merchantID, subjectHash string) (*domain.Campaign, error)
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	TouchCampaign(ctx context.Context, campaignID string, lastSeenAt time.Time) error

	AppendCampaignEmail(ctx context.Context, e domain.CampaignEmail) error
	// MaxSequenceOrder returns -1 when the recipient has no existing
	// path rows for merchantID, so the caller's next sequence_order is 0.
	MaxSequenceOrder(ctx context.Context, merchantID, recipient string) (int, error)
	HasRecipientPath(ctx context.Context, merchantID, recipient, campaignID string) (bool, error)
	AppendRecipientPath(ctx context.Context, p domain.RecipientPath) error
	IncrementUniqueRecipients(ctx context.Context, campaignID string) error

	MerchantWorkerStatus(ctx context.Context, merchantID, workerName string) (domain.AnalysisStatus, error)

	PathsForMerchant(ctx context.Context, merchantID string, workers []string) ([]domain.RecipientPath, error)
	DeletePathsForMerchant(ctx context.Context, merchantID string) error
	CampaignEmailsForMerchant(ctx context.Context, merchantID string) ([]domain.CampaignEmail, error)

	CampaignsForMerchant(ctx context.Context, merchantID string) ([]domain.Campaign, error)
	SetPathNewUser(ctx context.Context, merchantID, recipient, campaignID string, isNewUser bool, firstRootCampaignID *string) error
	ClearNewUserFlags(ctx context.Context, merchantID string) error

	// RecomputeCampaignTotals recomputes total_emails and
	// unique_recipients for one campaign from campaign_emails, writing
	// the absolute counts back. Unlike TouchCampaign/
	// IncrementUniqueRecipients, this is idempotent and corrects any
	// prior drift rather than applying a relative delta.
	RecomputeCampaignTotals(ctx context.Context, campaignID string) error
	// RecomputeMerchantTotals recomputes total_emails (sum of its
	// campaigns' total_emails) and total_campaigns (count of its
	// campaigns) for one merchant, writing the absolute counts back.
	RecomputeMerchantTotals(ctx context.Context, merchantID string) error
	// AllMerchantIDs lists every known merchant id, for the scheduler's
	// reconciliation tick to sweep in one pass.
	AllMerchantIDs(ctx context.Context) ([]string, error)
}
