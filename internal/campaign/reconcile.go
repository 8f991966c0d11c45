package campaign

import (
	"context"
	"fmt"
)

// ReconcileResult reports how many rows Reconcile touched, for the
// scheduler tick that invokes it to log.
type ReconcileResult struct {
	CampaignsRecomputed int
	MerchantRecomputed  bool
}

// Reconcile recomputes one merchant's denormalized counters from
// source data: each of its campaigns' total_emails/unique_recipients
// from campaign_emails, then the merchant's own total_emails/
// total_campaigns from its campaigns. It is the nightly counterpart to
// the incremental bookkeeping TrackEmail performs on the hot path,
// grounded on the same per-campaign recompute statement
// DeleteMerchantData already uses when it cascades a deletion.
func (e *Engine) Reconcile(ctx context.Context, merchantID string) (ReconcileResult, error) {
	var result ReconcileResult

	campaigns, err := e.store.CampaignsForMerchant(ctx, merchantID)
	if err != nil {
		return result, fmt.Errorf("campaign: reconcile: list campaigns: %w", err)
	}

	for _, c := range campaigns {
		if err := e.store.RecomputeCampaignTotals(ctx, c.ID); err != nil {
			return result, fmt.Errorf("campaign: reconcile: recompute campaign %s: %w", c.ID, err)
		}
		result.CampaignsRecomputed++
	}

	if err := e.store.RecomputeMerchantTotals(ctx, merchantID); err != nil {
		return result, fmt.Errorf("campaign: reconcile: recompute merchant: %w", err)
	}
	result.MerchantRecomputed = true

	return result, nil
}

// ReconcileAll runs Reconcile over every known merchant, the shape the
// scheduler's reconciliation tick actually invokes. One merchant's
// failure is logged by the caller and does not stop the sweep.
func (e *Engine) ReconcileAll(ctx context.Context) (map[string]ReconcileResult, []error) {
	results := make(map[string]ReconcileResult)
	var errs []error

	ids, err := e.store.AllMerchantIDs(ctx)
	if err != nil {
		return results, []error{fmt.Errorf("campaign: reconcile all: list merchants: %w", err)}
	}

	for _, id := range ids {
		r, err := e.Reconcile(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("merchant %s: %w", id, err))
			continue
		}
		results[id] = r
	}

	return results, errs
}
