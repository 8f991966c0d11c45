package campaign

import (
	"context"
	"fmt"
	"sort"

	"github.com/ignite/filterplane/internal/domain"
)

// RebuildRecipientPaths deletes every path row for the merchant, then
// replays its campaign_emails ordered by (recipient, received_at),
// appending each campaign unseen-for-recipient with a fresh
// sequence_order starting at 0 (the same 0-based counting
// appendRecipientPath uses), before rerunning RecalculateAllNewUsers.
//
// When workers is non-empty, only campaign_emails whose worker_name is
// in the set are replayed.
func (e *Engine) RebuildRecipientPaths(ctx context.Context, merchantID string, workers []string) error {
	if err := e.store.DeletePathsForMerchant(ctx, merchantID); err != nil {
		return fmt.Errorf("campaign: delete paths for rebuild: %w", err)
	}

	emails, err := e.store.CampaignEmailsForMerchant(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("campaign: campaign emails for rebuild: %w", err)
	}

	workerSet := toSet(workers)
	if len(workerSet) > 0 {
		filtered := emails[:0]
		for _, em := range emails {
			if workerSet[em.WorkerName] {
				filtered = append(filtered, em)
			}
		}
		emails = filtered
	}

	sort.Slice(emails, func(i, j int) bool {
		if emails[i].Recipient != emails[j].Recipient {
			return emails[i].Recipient < emails[j].Recipient
		}
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})

	nextSeq := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for _, em := range emails {
		campaignID := em.CampaignID
		if seen[em.Recipient] == nil {
			seen[em.Recipient] = make(map[string]bool)
		}
		if seen[em.Recipient][campaignID] {
			continue
		}
		seen[em.Recipient][campaignID] = true

		seq := nextSeq[em.Recipient]
		nextSeq[em.Recipient] = seq + 1

		if err := e.store.AppendRecipientPath(ctx, domain.RecipientPath{
			MerchantID:      merchantID,
			Recipient:       em.Recipient,
			CampaignID:      campaignID,
			SequenceOrder:   seq,
			FirstReceivedAt: em.ReceivedAt,
		}); err != nil {
			return fmt.Errorf("campaign: append rebuilt path: %w", err)
		}
	}

	return e.RecalculateAllNewUsers(ctx, merchantID)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}
