package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/platform/dberr"
)

// CampaignRepo implements campaign.Store against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign-analytics repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) GetMerchantByDomain(ctx context.Context, rootDomain string) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, domain, display_name, note, analysis_status, total_campaigns, total_emails, created_at, updated_at
		FROM merchants WHERE domain = $1
	`, rootDomain).Scan(&m.ID, &m.Domain, &m.DisplayName, &m.Note, &m.AnalysisStatus,
		&m.TotalCampaigns, &m.TotalEmails, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, dberr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get merchant by domain: %w", err)
	}
	return m, nil
}

func (r *CampaignRepo) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO merchants (id, domain, display_name, note, analysis_status, total_campaigns, total_emails, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.Domain, m.DisplayName, m.Note, m.AnalysisStatus, m.TotalCampaigns, m.TotalEmails, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create merchant: %w", err)
	}
	return nil
}

func (r *CampaignRepo) IncrementMerchantCounters(ctx context.Context, merchantID string, emails, campaigns int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE merchants
		SET total_emails = total_emails + $1, total_campaigns = total_campaigns + $2, updated_at = now()
		WHERE id = $3
	`, emails, campaigns, merchantID)
	if err != nil {
		return fmt.Errorf("increment merchant counters: %w", err)
	}
	return nil
}

func (r *CampaignRepo) GetCampaignBySubjectHash(ctx context.Context, merchantID, subjectHash string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, merchant_id, subject, subject_hash, tag, is_root, is_root_candidate,
		       total_emails, unique_recipients, first_seen_at, last_seen_at
		FROM campaigns WHERE merchant_id = $1 AND subject_hash = $2
	`, merchantID, subjectHash).Scan(&c.ID, &c.MerchantID, &c.Subject, &c.SubjectHash, &c.Tag,
		&c.IsRoot, &c.IsRootCandidate, &c.TotalEmails, &c.UniqueRecipients, &c.FirstSeenAt, &c.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, dberr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign by subject hash: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, merchant_id, subject, subject_hash, tag, is_root, is_root_candidate,
			 total_emails, unique_recipients, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.MerchantID, c.Subject, c.SubjectHash, c.Tag, c.IsRoot, c.IsRootCandidate,
		c.TotalEmails, c.UniqueRecipients, c.FirstSeenAt, c.LastSeenAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) TouchCampaign(ctx context.Context, campaignID string, lastSeenAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET total_emails = total_emails + 1, last_seen_at = $1 WHERE id = $2
	`, lastSeenAt, campaignID)
	if err != nil {
		return fmt.Errorf("touch campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) AppendCampaignEmail(ctx context.Context, e domain.CampaignEmail) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaign_emails (id, campaign_id, recipient, received_at, worker_name)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.CampaignID, e.Recipient, e.ReceivedAt, e.WorkerName)
	if err != nil {
		return fmt.Errorf("append campaign email: %w", err)
	}
	return nil
}

func (r *CampaignRepo) MaxSequenceOrder(ctx context.Context, merchantID, recipient string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(sequence_order) FROM recipient_paths WHERE merchant_id = $1 AND recipient = $2
	`, merchantID, recipient).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max sequence order: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

func (r *CampaignRepo) HasRecipientPath(ctx context.Context, merchantID, recipient, campaignID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM recipient_paths WHERE merchant_id = $1 AND recipient = $2 AND campaign_id = $3)
	`, merchantID, recipient, campaignID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has recipient path: %w", err)
	}
	return exists, nil
}

func (r *CampaignRepo) AppendRecipientPath(ctx context.Context, p domain.RecipientPath) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recipient_paths
			(merchant_id, recipient, campaign_id, sequence_order, first_received_at, is_new_user, first_root_campaign_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.MerchantID, p.Recipient, p.CampaignID, p.SequenceOrder, p.FirstReceivedAt, p.IsNewUser, p.FirstRootCampaign)
	if err != nil {
		return fmt.Errorf("append recipient path: %w", err)
	}
	return nil
}

func (r *CampaignRepo) IncrementUniqueRecipients(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET unique_recipients = unique_recipients + 1 WHERE id = $1
	`, campaignID)
	if err != nil {
		return fmt.Errorf("increment unique recipients: %w", err)
	}
	return nil
}

func (r *CampaignRepo) RecomputeCampaignTotals(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns c SET
			total_emails = (SELECT COUNT(*) FROM campaign_emails WHERE campaign_id = c.id),
			unique_recipients = (SELECT COUNT(DISTINCT recipient) FROM campaign_emails WHERE campaign_id = c.id)
		WHERE c.id = $1
	`, campaignID)
	if err != nil {
		return fmt.Errorf("recompute campaign totals: %w", err)
	}
	return nil
}

func (r *CampaignRepo) RecomputeMerchantTotals(ctx context.Context, merchantID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE merchants m SET
			total_emails = (SELECT COALESCE(SUM(total_emails), 0) FROM campaigns WHERE merchant_id = m.id),
			total_campaigns = (SELECT COUNT(*) FROM campaigns WHERE merchant_id = m.id),
			updated_at = now()
		WHERE m.id = $1
	`, merchantID)
	if err != nil {
		return fmt.Errorf("recompute merchant totals: %w", err)
	}
	return nil
}

func (r *CampaignRepo) MerchantWorkerStatus(ctx context.Context, merchantID, workerName string) (domain.AnalysisStatus, error) {
	var status domain.AnalysisStatus
	err := r.db.QueryRowContext(ctx, `
		SELECT analysis_status FROM merchant_worker_status WHERE merchant_id = $1 AND worker_name = $2
	`, merchantID, workerName).Scan(&status)
	if err == sql.ErrNoRows {
		return r.fallbackMerchantStatus(ctx, merchantID)
	}
	if err != nil {
		return "", fmt.Errorf("merchant worker status: %w", err)
	}
	return status, nil
}

func (r *CampaignRepo) fallbackMerchantStatus(ctx context.Context, merchantID string) (domain.AnalysisStatus, error) {
	var status domain.AnalysisStatus
	err := r.db.QueryRowContext(ctx, `SELECT analysis_status FROM merchants WHERE id = $1`, merchantID).Scan(&status)
	if err == sql.ErrNoRows {
		return domain.StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("fallback merchant status: %w", err)
	}
	return status, nil
}

func (r *CampaignRepo) PathsForMerchant(ctx context.Context, merchantID string, workers []string) ([]domain.RecipientPath, error) {
	query := `
		SELECT p.merchant_id, p.recipient, p.campaign_id, p.sequence_order, p.first_received_at,
		       p.is_new_user, p.first_root_campaign_id
		FROM recipient_paths p
		WHERE p.merchant_id = $1
	`
	args := []interface{}{merchantID}
	if len(workers) > 0 {
		query += `
			AND EXISTS (
				SELECT 1 FROM campaign_emails ce
				WHERE ce.campaign_id = p.campaign_id AND ce.recipient = p.recipient
				AND ce.worker_name = ANY($2)
			)
		`
		args = append(args, pq.Array(workers))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("paths for merchant: %w", err)
	}
	defer rows.Close()

	var out []domain.RecipientPath
	for rows.Next() {
		var p domain.RecipientPath
		if err := rows.Scan(&p.MerchantID, &p.Recipient, &p.CampaignID, &p.SequenceOrder,
			&p.FirstReceivedAt, &p.IsNewUser, &p.FirstRootCampaign); err != nil {
			return nil, fmt.Errorf("scan recipient path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) DeletePathsForMerchant(ctx context.Context, merchantID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recipient_paths WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return fmt.Errorf("delete paths for merchant: %w", err)
	}
	return nil
}

func (r *CampaignRepo) CampaignEmailsForMerchant(ctx context.Context, merchantID string) ([]domain.CampaignEmail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ce.id, ce.campaign_id, ce.recipient, ce.received_at, ce.worker_name
		FROM campaign_emails ce
		JOIN campaigns c ON c.id = ce.campaign_id
		WHERE c.merchant_id = $1
	`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("campaign emails for merchant: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignEmail
	for rows.Next() {
		var e domain.CampaignEmail
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.Recipient, &e.ReceivedAt, &e.WorkerName); err != nil {
			return nil, fmt.Errorf("scan campaign email: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) CampaignsForMerchant(ctx context.Context, merchantID string) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, merchant_id, subject, subject_hash, tag, is_root, is_root_candidate,
		       total_emails, unique_recipients, first_seen_at, last_seen_at
		FROM campaigns WHERE merchant_id = $1
	`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("campaigns for merchant: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.MerchantID, &c.Subject, &c.SubjectHash, &c.Tag,
			&c.IsRoot, &c.IsRootCandidate, &c.TotalEmails, &c.UniqueRecipients, &c.FirstSeenAt, &c.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) SetPathNewUser(ctx context.Context, merchantID, recipient, campaignID string, isNewUser bool, firstRootCampaignID *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recipient_paths
		SET is_new_user = $1, first_root_campaign_id = $2
		WHERE merchant_id = $3 AND recipient = $4 AND campaign_id = $5
	`, isNewUser, firstRootCampaignID, merchantID, recipient, campaignID)
	if err != nil {
		return fmt.Errorf("set path new user: %w", err)
	}
	return nil
}

func (r *CampaignRepo) ClearNewUserFlags(ctx context.Context, merchantID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recipient_paths SET is_new_user = false, first_root_campaign_id = NULL WHERE merchant_id = $1
	`, merchantID)
	if err != nil {
		return fmt.Errorf("clear new user flags: %w", err)
	}
	return nil
}

func (r *CampaignRepo) AllMerchantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM merchants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list merchant ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merchant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
