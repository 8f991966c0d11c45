package campaign

import (
	"context"
	"fmt"
	"sort"

	"github.com/ignite/filterplane/internal/domain"
)

// RecalculateNewUsers marks every recipient who saw the given
// confirmed-root campaign as a new user (is_new_user=true,
// first_root_campaign_id=root), unless they already have a first-root
// campaign recorded.
func (e *Engine) RecalculateNewUsers(ctx context.Context, merchantID, rootCampaignID string) error {
	paths, err := e.store.PathsForMerchant(ctx, merchantID, nil)
	if err != nil {
		return fmt.Errorf("campaign: paths for merchant: %w", err)
	}

	for _, p := range paths {
		if p.CampaignID != rootCampaignID {
			continue
		}
		if p.FirstRootCampaign != nil {
			continue
		}
		root := rootCampaignID
		if err := e.store.SetPathNewUser(ctx, merchantID, p.Recipient, p.CampaignID, true, &root); err != nil {
			return fmt.Errorf("campaign: set path new user: %w", err)
		}
	}
	return nil
}

// RecalculateAllNewUsers clears every new-user flag for the merchant,
// then for each recipient finds their earliest-sequence path entry
// that is a confirmed root campaign and marks it.
func (e *Engine) RecalculateAllNewUsers(ctx context.Context, merchantID string) error {
	if err := e.store.ClearNewUserFlags(ctx, merchantID); err != nil {
		return fmt.Errorf("campaign: clear new user flags: %w", err)
	}

	campaigns, err := e.store.CampaignsForMerchant(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("campaign: campaigns for merchant: %w", err)
	}
	roots := make(map[string]bool)
	for _, c := range campaigns {
		if c.IsRoot {
			roots[c.ID] = true
		}
	}

	paths, err := e.store.PathsForMerchant(ctx, merchantID, nil)
	if err != nil {
		return fmt.Errorf("campaign: paths for merchant: %w", err)
	}

	byRecipient := make(map[string][]domain.RecipientPath)
	for _, p := range paths {
		byRecipient[p.Recipient] = append(byRecipient[p.Recipient], p)
	}

	for recipient, list := range byRecipient {
		sort.Slice(list, func(i, j int) bool { return list[i].SequenceOrder < list[j].SequenceOrder })
		for _, p := range list {
			if !roots[p.CampaignID] {
				continue
			}
			root := p.CampaignID
			if err := e.store.SetPathNewUser(ctx, merchantID, recipient, p.CampaignID, true, &root); err != nil {
				return fmt.Errorf("campaign: set path new user: %w", err)
			}
			break
		}
	}
	return nil
}
