// Package dynamic implements the "count-first, then time-span" dynamic
// rule detector (C4): it watches subjects the filter engine
// default-forwarded and, once a subject crosses both a count and a
// tight time-span threshold, synchronously creates a blacklist-style
// dynamic rule so the triggering message is itself retroactively
// blocked.
package dynamic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/rules"
)

// TrackerStore is the persistence boundary for the ephemeral email
// subject tracker table.
type TrackerStore interface {
	Append(ctx context.Context, row domain.EmailSubjectTracker) error
	CountInWindow(ctx context.Context, hash uint64, from, to time.Time) (int, error)
	FirstNInWindow(ctx context.Context, hash uint64, from, to time.Time, n int) ([]domain.EmailSubjectTracker, error)
	PurgeOlderThan(ctx context.Context, hash uint64, before time.Time) error
}

// Result is what TrackSubject returns: either a rule (new or existing)
// plus detection metrics, or nothing when no threshold was crossed.
type Result struct {
	Rule                       *domain.FilterRule
	Created                    bool
	DetectionLatencyMs         int64
	EmailsForwardedBeforeBlock int
}

// Detector implements TrackSubject per spec §4.3.
type Detector struct {
	tracker TrackerStore
	rules   *rules.Service
	config  func() domain.DynamicConfig
}

// New wires a Detector. config is a supplier so admin-edited dynamic
// config is read fresh on every call, not frozen at construction time.
func New(tracker TrackerStore, ruleService *rules.Service, config func() domain.DynamicConfig) *Detector {
	return &Detector{tracker: tracker, rules: ruleService, config: config}
}

// SubjectHash is the stable, non-cryptographic hash used to key the
// tracker table: trimmed, lowercased subject, hashed with xxhash. This
// is deliberately NOT the sha-256 hash campaign analytics (C6) uses for
// Campaign.SubjectHash -- the two layers hash for different purposes
// (fast grouping here vs. a stable dedup key there) and are not
// interchangeable.
func SubjectHash(subject string) uint64 {
	normalized := strings.ToLower(strings.TrimSpace(subject))
	return xxhash.Sum64String(normalized)
}

// TrackSubject runs the detector for one default-forwarded message. It
// must only be invoked when the filter engine returned default-forward
// (no matched category); whitelist/blacklist/dynamic-matched messages
// are never tracked.
func (d *Detector) TrackSubject(ctx context.Context, subject string, receivedAt time.Time) (Result, error) {
	cfg := d.config()
	if !cfg.Enabled {
		return Result{}, nil
	}

	hash := SubjectHash(subject)
	windowStart := receivedAt.Add(-time.Duration(cfg.TimeWindowMinutes) * time.Minute)

	if err := d.tracker.Append(ctx, domain.EmailSubjectTracker{
		SubjectHash: hash,
		Subject:     subject,
		ReceivedAt:  receivedAt,
	}); err != nil {
		return Result{}, fmt.Errorf("dynamic: append tracker row: %w", err)
	}

	count, err := d.tracker.CountInWindow(ctx, hash, windowStart, receivedAt)
	if err != nil {
		return Result{}, fmt.Errorf("dynamic: count window: %w", err)
	}
	if count < cfg.ThresholdCount {
		return Result{}, nil
	}

	rows, err := d.tracker.FirstNInWindow(ctx, hash, windowStart, receivedAt, cfg.ThresholdCount)
	if err != nil {
		return Result{}, fmt.Errorf("dynamic: first-n window: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	first := rows[0].ReceivedAt
	last := rows[len(rows)-1].ReceivedAt
	timeSpanMinutes := last.Sub(first).Minutes()
	if timeSpanMinutes > cfg.TimeSpanThresholdMinutes {
		// Count crossed but spread too thin: keep tracking, don't purge.
		return Result{}, nil
	}

	if existing := d.findExistingDynamicRule(subject); existing != nil {
		now := time.Now().UTC()
		existing.LastHitAt = &now
		if err := d.rules.Update(ctx, *existing); err != nil {
			return Result{}, fmt.Errorf("dynamic: update existing rule: %w", err)
		}
		return Result{Rule: existing, Created: false}, nil
	}

	newRule := domain.FilterRule{
		Category:  domain.CategoryDynamic,
		MatchType: domain.MatchTypeSubject,
		MatchMode: domain.ModeContains,
		Pattern:   subject,
		Enabled:   true,
	}
	created, err := d.rules.Create(ctx, newRule)
	if err != nil {
		return Result{}, fmt.Errorf("dynamic: create rule: %w", err)
	}

	if err := d.tracker.PurgeOlderThan(ctx, hash, windowStart); err != nil {
		return Result{}, fmt.Errorf("dynamic: purge tracker rows: %w", err)
	}

	return Result{
		Rule:                       &created,
		Created:                    true,
		DetectionLatencyMs:         receivedAt.Sub(first).Milliseconds(),
		EmailsForwardedBeforeBlock: count - 1,
	}, nil
}

func (d *Detector) findExistingDynamicRule(subject string) *domain.FilterRule {
	for _, r := range d.rules.Cache().ByCategory(domain.CategoryDynamic) {
		if r.MatchType == domain.MatchTypeSubject && r.Pattern == subject {
			rule := r
			return &rule
		}
	}
	return nil
}

// IsExpired reports whether a dynamic rule has gone stale: both
// last_hit_at (or created_at when null) older than expirationHours.
func IsExpired(rule domain.FilterRule, expirationHours int, now time.Time) bool {
	reference := rule.CreatedAt
	if rule.LastHitAt != nil {
		reference = *rule.LastHitAt
	}
	return now.Sub(reference) > time.Duration(expirationHours)*time.Hour
}
