// Package retention implements the cleanup/retention core (C11): a
// set of idempotent, resumable bulk-delete operations, each run inside
// a single transaction per spec.md §4.8.
package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/storage/postgres"
)

// Service runs the retention sweeps directly against the relational
// store. Every operation is idempotent: re-running it after a partial
// failure or a crash mid-sweep converges to the same end state.
type Service struct {
	db            *sql.DB
	dynamicConfig func() domain.DynamicConfig
}

// NewService wires a retention Service. dynamicConfig is a live lookup
// (not a snapshot) so config changes take effect on the next sweep.
func NewService(db *sql.DB, dynamicConfig func() domain.DynamicConfig) *Service {
	return &Service{db: db, dynamicConfig: dynamicConfig}
}

// CleanupExpiredDynamicRules deletes dynamic rules whose last_hit_at
// (or created_at, when never hit) is older than the configured
// expiration. No-op when dynamic-rule detection is disabled.
func (s *Service) CleanupExpiredDynamicRules(ctx context.Context) (int64, error) {
	cfg := s.dynamicConfig()
	if !cfg.Enabled {
		return 0, nil
	}
	cutoff := time.Now().Add(-time.Duration(cfg.ExpirationHours) * time.Hour)

	var deleted int64
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM filter_rules
			WHERE category = 'dynamic'
			  AND COALESCE(last_hit_at, created_at) < $1
		`, cutoff)
		if err != nil {
			return fmt.Errorf("delete expired dynamic rules: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

// CleanupIgnoredMerchantData removes data belonging to ignored
// merchants. With a specific worker named, only that worker's
// campaign_emails and worker-status rows are removed. With the
// "global" wildcard, every merchant that is ignored globally or in any
// worker is cascade-deleted (campaigns, campaign_emails, paths,
// worker-status rows, and the merchant row itself).
func (s *Service) CleanupIgnoredMerchantData(ctx context.Context, worker string) (int64, error) {
	var affected int64
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if worker != "" && worker != domain.GlobalWorker {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM campaign_emails ce
				USING merchant_worker_status mws, campaigns c
				WHERE ce.campaign_id = c.id AND c.merchant_id = mws.merchant_id
				  AND mws.worker_name = $1 AND mws.analysis_status = 'ignored'
				  AND ce.worker_name = $1
			`, worker)
			if err != nil {
				return fmt.Errorf("delete ignored worker campaign emails: %w", err)
			}
			n, _ := res.RowsAffected()
			affected += n

			res, err = tx.ExecContext(ctx, `
				DELETE FROM merchant_worker_status WHERE worker_name = $1 AND analysis_status = 'ignored'
			`, worker)
			if err != nil {
				return fmt.Errorf("delete ignored worker status rows: %w", err)
			}
			n, _ = res.RowsAffected()
			affected += n
			return nil
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT DISTINCT m.id FROM merchants m
			LEFT JOIN merchant_worker_status mws ON mws.merchant_id = m.id AND mws.analysis_status = 'ignored'
			WHERE m.analysis_status = 'ignored' OR mws.merchant_id IS NOT NULL
		`)
		if err != nil {
			return fmt.Errorf("select ignored merchants: %w", err)
		}
		var merchantIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan ignored merchant id: %w", err)
			}
			merchantIDs = append(merchantIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range merchantIDs {
			n, err := cascadeDeleteMerchantTx(ctx, tx, id)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	return affected, err
}

// CleanupOldPendingData removes merchants (and everything under them)
// left in pending status for longer than days. The worker argument is
// not consulted: every matching merchant is removed in full, whichever
// workers its campaign_emails came from.
func (s *Service) CleanupOldPendingData(ctx context.Context, days int, worker string) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	var affected int64
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `SELECT id FROM merchants WHERE analysis_status = 'pending' AND updated_at < $1`
		args := []interface{}{cutoff}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("select old pending merchants: %w", err)
		}
		var merchantIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan pending merchant id: %w", err)
			}
			merchantIDs = append(merchantIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range merchantIDs {
			n, err := cascadeDeleteMerchantTx(ctx, tx, id)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	return affected, err
}

// CleanupOldUserPaths removes path rows for recipients flagged as
// old-users (is_new_user=false) for a merchant, preserving each
// recipient's earliest (sequence_order=0) entry.
func (s *Service) CleanupOldUserPaths(ctx context.Context, merchantID string) (int64, error) {
	var affected int64
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM recipient_paths
			WHERE merchant_id = $1 AND is_new_user = false AND sequence_order > 0
		`, merchantID)
		if err != nil {
			return fmt.Errorf("delete old user paths: %w", err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

// CleanupAllOldUserPaths is CleanupOldUserPaths without the
// first-entry exception: every path row for an old-user recipient is
// removed.
func (s *Service) CleanupAllOldUserPaths(ctx context.Context, merchantID string) (int64, error) {
	var affected int64
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM recipient_paths WHERE merchant_id = $1 AND is_new_user = false
		`, merchantID)
		if err != nil {
			return fmt.Errorf("delete all old user paths: %w", err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

// CleanupOldCustomerPaths removes path rows for recipients who were
// never flagged is_new_user within the given worker set, without
// touching campaign_emails.
func (s *Service) CleanupOldCustomerPaths(ctx context.Context, merchantID string, workers []string) (int64, error) {
	var affected int64
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			DELETE FROM recipient_paths p
			WHERE p.merchant_id = $1
			  AND NOT EXISTS (
			      SELECT 1 FROM recipient_paths p2
			      WHERE p2.merchant_id = p.merchant_id AND p2.recipient = p.recipient AND p2.is_new_user = true
			  )
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
			args = append(args, workersArray(workers))
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete old customer paths: %w", err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	return affected, err
}

// DeleteMerchantDataResult reports what deleteMerchantData removed.
type DeleteMerchantDataResult struct {
	EmailsDeleted   int64
	PathsDeleted    int64
	MerchantDeleted bool
}

// DeleteMerchantData is the six-step transactional per-worker delete
// from spec.md §4.8: remove one worker's slice of a merchant's data,
// recompute affected campaign counters, and cascade the whole merchant
// away if nothing is left under it.
func (s *Service) DeleteMerchantData(ctx context.Context, merchantID, worker string) (DeleteMerchantDataResult, error) {
	var result DeleteMerchantDataResult

	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		campaignRows, err := tx.QueryContext(ctx, `SELECT id FROM campaigns WHERE merchant_id = $1`, merchantID)
		if err != nil {
			return fmt.Errorf("select campaign ids: %w", err)
		}
		var campaignIDs []string
		for campaignRows.Next() {
			var id string
			if err := campaignRows.Scan(&id); err != nil {
				campaignRows.Close()
				return fmt.Errorf("scan campaign id: %w", err)
			}
			campaignIDs = append(campaignIDs, id)
		}
		campaignRows.Close()
		if err := campaignRows.Err(); err != nil {
			return err
		}
		if len(campaignIDs) == 0 {
			return nil
		}

		recipientRows, err := tx.QueryContext(ctx, `
			SELECT DISTINCT recipient FROM campaign_emails
			WHERE campaign_id = ANY($1) AND worker_name = $2
		`, campaignIDsArray(campaignIDs), worker)
		if err != nil {
			return fmt.Errorf("select recipients for worker: %w", err)
		}
		var recipients []string
		for recipientRows.Next() {
			var r string
			if err := recipientRows.Scan(&r); err != nil {
				recipientRows.Close()
				return fmt.Errorf("scan recipient: %w", err)
			}
			recipients = append(recipients, r)
		}
		recipientRows.Close()
		if err := recipientRows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM campaign_emails WHERE campaign_id = ANY($1) AND worker_name = $2
		`, campaignIDsArray(campaignIDs), worker)
		if err != nil {
			return fmt.Errorf("delete worker campaign emails: %w", err)
		}
		result.EmailsDeleted, _ = res.RowsAffected()

		for _, recipient := range recipients {
			var remaining int64
			if err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM campaign_emails WHERE campaign_id = ANY($1) AND recipient = $2
			`, campaignIDsArray(campaignIDs), recipient).Scan(&remaining); err != nil {
				return fmt.Errorf("count remaining emails for recipient: %w", err)
			}
			if remaining == 0 {
				res, err := tx.ExecContext(ctx, `
					DELETE FROM recipient_paths WHERE merchant_id = $1 AND recipient = $2
				`, merchantID, recipient)
				if err != nil {
					return fmt.Errorf("delete recipient paths: %w", err)
				}
				n, _ := res.RowsAffected()
				result.PathsDeleted += n
			}
		}

		for _, campaignID := range campaignIDs {
			if _, err := tx.ExecContext(ctx, `
				UPDATE campaigns c SET
					total_emails = (SELECT COUNT(*) FROM campaign_emails WHERE campaign_id = c.id),
					unique_recipients = (SELECT COUNT(DISTINCT recipient) FROM campaign_emails WHERE campaign_id = c.id)
				WHERE c.id = $1
			`, campaignID); err != nil {
				return fmt.Errorf("recompute campaign counters: %w", err)
			}
		}

		var totalEmails int64
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(total_emails), 0) FROM campaigns WHERE merchant_id = $1
		`, merchantID).Scan(&totalEmails); err != nil {
			return fmt.Errorf("sum merchant total emails: %w", err)
		}

		if totalEmails == 0 {
			if _, err := cascadeDeleteMerchantTx(ctx, tx, merchantID); err != nil {
				return err
			}
			result.MerchantDeleted = true
		}

		return nil
	})

	return result, err
}

// cascadeDeleteMerchantTx removes a merchant and every row that
// references it: campaign_emails, recipient_paths, worker-status
// rows, campaigns, and finally the merchant itself.
func cascadeDeleteMerchantTx(ctx context.Context, tx *sql.Tx, merchantID string) (int64, error) {
	var affected int64

	res, err := tx.ExecContext(ctx, `
		DELETE FROM campaign_emails WHERE campaign_id IN (SELECT id FROM campaigns WHERE merchant_id = $1)
	`, merchantID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete campaign emails: %w", err)
	}
	n, _ := res.RowsAffected()
	affected += n

	res, err = tx.ExecContext(ctx, `DELETE FROM recipient_paths WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete recipient paths: %w", err)
	}
	n, _ = res.RowsAffected()
	affected += n

	res, err = tx.ExecContext(ctx, `DELETE FROM merchant_worker_status WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete worker status: %w", err)
	}
	n, _ = res.RowsAffected()
	affected += n

	res, err = tx.ExecContext(ctx, `DELETE FROM campaigns WHERE merchant_id = $1`, merchantID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete campaigns: %w", err)
	}
	n, _ = res.RowsAffected()
	affected += n

	res, err = tx.ExecContext(ctx, `DELETE FROM merchants WHERE id = $1`, merchantID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete merchant: %w", err)
	}
	n, _ = res.RowsAffected()
	affected += n

	return affected, nil
}
