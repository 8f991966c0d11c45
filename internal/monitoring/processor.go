package monitoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/matcher"
)

// Email is the strict monitoring event shape (spec §6): exactly these
// fields. Extra caller fields never reach this struct and are never
// persisted.
type Email struct {
	Sender     string
	Subject    string
	Recipient  string
	ReceivedAt time.Time
	WorkerName string
}

// StateChange reports one rule's transition during processEmail.
type StateChange struct {
	RuleID        string
	PreviousState domain.SignalStateValue
	CurrentState  domain.SignalStateValue
}

// ProcessResult is processEmail's return shape.
type ProcessResult struct {
	Matched      bool
	MatchedRules []string
	StateChanges []StateChange
}

// Processor is the Hit Processor (C8): matches an inbound email
// against enabled Monitoring Rules and records hits.
type Processor struct {
	rules   RuleStore
	signals *SignalService
	alerts  AlertStore
	matcher *matcher.Matcher
}

// NewProcessor wires a Processor.
func NewProcessor(rules RuleStore, signals *SignalService, alerts AlertStore, m *matcher.Matcher) *Processor {
	return &Processor{rules: rules, signals: signals, alerts: alerts, matcher: m}
}

// ProcessEmail validates the event and evaluates it against every
// enabled Monitoring Rule in scope, recording a hit (and, on recovery,
// an alert) for each match.
func (p *Processor) ProcessEmail(ctx context.Context, email Email) (ProcessResult, error) {
	if strings.TrimSpace(email.Sender) == "" || strings.TrimSpace(email.Subject) == "" || strings.TrimSpace(email.Recipient) == "" {
		return ProcessResult{}, fmt.Errorf("monitoring: sender, subject, and recipient are required")
	}
	if email.ReceivedAt.IsZero() {
		return ProcessResult{}, fmt.Errorf("monitoring: receivedAt must be a valid date")
	}

	rules, err := p.rules.ListEnabled(ctx)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("monitoring: list enabled rules: %w", err)
	}

	var result ProcessResult
	for _, rule := range rules {
		if rule.WorkerScope != domain.GlobalWorker && rule.WorkerScope != email.WorkerName {
			continue
		}

		mode := rule.MatchMode
		if mode == "" {
			mode = domain.ModeContains
		}

		matched, err := p.matcher.Match(rule.SubjectPattern, email.Subject, mode)
		if err != nil {
			continue // uncompilable pattern: skip the rule, never fail the email
		}
		if !matched {
			continue
		}

		result.Matched = true
		result.MatchedRules = append(result.MatchedRules, rule.ID)

		hit, err := p.signals.UpdateOnHit(ctx, rule.ID, email.ReceivedAt, &EmailMeta{
			Sender: email.Sender, Subject: email.Subject, Recipient: email.Recipient,
		})
		if err != nil {
			return result, fmt.Errorf("monitoring: update on hit: %w", err)
		}

		if hit.PreviousState != domain.SignalActive && hit.CurrentState == domain.SignalActive {
			result.StateChanges = append(result.StateChanges, StateChange{
				RuleID: rule.ID, PreviousState: hit.PreviousState, CurrentState: hit.CurrentState,
			})
			if err := p.alerts.Create(ctx, domain.Alert{
				ID:            uuid.New().String(),
				RuleID:        rule.ID,
				AlertType:     domain.AlertSignalRecovered,
				PreviousState: hit.PreviousState,
				CurrentState:  hit.CurrentState,
				GapMinutes:    0,
				CreatedAt:     time.Now().UTC(),
			}); err != nil {
				return result, fmt.Errorf("monitoring: create recovery alert: %w", err)
			}
		}
	}

	return result, nil
}
