package monitoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
)

// Status is the response shape for getStatus.
type Status struct {
	Rule       domain.MonitoringRule
	State      domain.SignalStateValue
	LastSeenAt *time.Time
	GapMinutes float64 // +Inf when LastSeenAt is nil
	Count1h    int64
	Count12h   int64
	Count24h   int64
	UpdatedAt  time.Time
}

// HitResult is what updateOnHit reports back to the hit processor.
type HitResult struct {
	PreviousState domain.SignalStateValue
	CurrentState  domain.SignalStateValue
}

// SignalService implements the signal-state machine (C7): status
// queries and atomic hit recording.
type SignalService struct {
	rules   RuleStore
	signals SignalStore
	hits    HitLogStore
}

// NewSignalService wires a SignalService against its three stores.
func NewSignalService(rules RuleStore, signals SignalStore, hits HitLogStore) *SignalService {
	return &SignalService{rules: rules, signals: signals, hits: hits}
}

// GetStatus returns the signal status of one monitoring rule.
func (s *SignalService) GetStatus(ctx context.Context, ruleID string) (Status, error) {
	rule, err := s.rules.Get(ctx, ruleID)
	if err != nil {
		return Status{}, fmt.Errorf("monitoring: get rule: %w", err)
	}

	state, err := s.signals.Get(ctx, ruleID)
	if err != nil {
		return Status{}, fmt.Errorf("monitoring: get signal state: %w", err)
	}

	gap := math.Inf(1)
	if state.LastSeenAt != nil {
		gap = math.Floor(time.Since(*state.LastSeenAt).Minutes())
	}

	return Status{
		Rule:       *rule,
		State:      state.State,
		LastSeenAt: state.LastSeenAt,
		GapMinutes: gap,
		Count1h:    state.Count1h,
		Count12h:   state.Count12h,
		Count24h:   state.Count24h,
		UpdatedAt:  state.UpdatedAt,
	}, nil
}

// EmailMeta is the optional payload recorded as a Hit Log row. These
// three fields, plus the hit time as received_at, are all that is ever
// persisted — no extra payload is accepted.
type EmailMeta struct {
	Sender    string
	Subject   string
	Recipient string
}

// UpdateOnHit atomically advances a rule's signal state on a matched
// email: last_seen_at and state always move to ACTIVE, the rolling
// counters increment (C9's sweep is the only thing that resets them),
// and an optional Hit Log row is appended.
func (s *SignalService) UpdateOnHit(ctx context.Context, ruleID string, hitTime time.Time, meta *EmailMeta) (HitResult, error) {
	previous, err := s.signals.Get(ctx, ruleID)
	if err != nil {
		return HitResult{}, fmt.Errorf("monitoring: get signal state: %w", err)
	}

	result := HitResult{PreviousState: previous.State, CurrentState: domain.SignalActive}

	next := *previous
	next.LastSeenAt = &hitTime
	next.State = domain.SignalActive
	next.Count1h++
	next.Count12h++
	next.Count24h++
	next.UpdatedAt = time.Now().UTC()

	if err := s.signals.Upsert(ctx, next); err != nil {
		return HitResult{}, fmt.Errorf("monitoring: upsert signal state: %w", err)
	}

	if meta != nil {
		if err := s.hits.Append(ctx, domain.HitLog{
			ID:         uuid.New().String(),
			RuleID:     ruleID,
			Sender:     meta.Sender,
			Subject:    meta.Subject,
			Recipient:  meta.Recipient,
			ReceivedAt: hitTime,
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			return HitResult{}, fmt.Errorf("monitoring: append hit log: %w", err)
		}
	}

	return result, nil
}
