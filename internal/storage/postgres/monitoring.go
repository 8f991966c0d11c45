package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/platform/dberr"
)

// MonitoringRuleRepo implements monitoring.RuleStore.
type MonitoringRuleRepo struct{ db *sql.DB }

func NewMonitoringRuleRepo(db *sql.DB) *MonitoringRuleRepo { return &MonitoringRuleRepo{db: db} }

func (r *MonitoringRuleRepo) Create(ctx context.Context, rule *domain.MonitoringRule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitoring_rules
			(id, merchant, name, subject_pattern, match_mode, expected_interval_minutes,
			 dead_after_minutes, worker_scope, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rule.ID, rule.Merchant, rule.Name, rule.SubjectPattern, rule.MatchMode,
		rule.ExpectedIntervalMinutes, rule.DeadAfterMinutes, rule.WorkerScope,
		rule.Enabled, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create monitoring rule: %w", err)
	}
	return nil
}

func (r *MonitoringRuleRepo) Get(ctx context.Context, id string) (*domain.MonitoringRule, error) {
	rule := &domain.MonitoringRule{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, merchant, name, subject_pattern, match_mode, expected_interval_minutes,
		       dead_after_minutes, worker_scope, enabled, created_at, updated_at
		FROM monitoring_rules WHERE id = $1
	`, id).Scan(&rule.ID, &rule.Merchant, &rule.Name, &rule.SubjectPattern, &rule.MatchMode,
		&rule.ExpectedIntervalMinutes, &rule.DeadAfterMinutes, &rule.WorkerScope,
		&rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, dberr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monitoring rule: %w", err)
	}
	return rule, nil
}

func (r *MonitoringRuleRepo) ListEnabled(ctx context.Context) ([]domain.MonitoringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, merchant, name, subject_pattern, match_mode, expected_interval_minutes,
		       dead_after_minutes, worker_scope, enabled, created_at, updated_at
		FROM monitoring_rules WHERE enabled = true
	`)
	if err != nil {
		return nil, fmt.Errorf("list enabled monitoring rules: %w", err)
	}
	defer rows.Close()

	var out []domain.MonitoringRule
	for rows.Next() {
		var rule domain.MonitoringRule
		if err := rows.Scan(&rule.ID, &rule.Merchant, &rule.Name, &rule.SubjectPattern, &rule.MatchMode,
			&rule.ExpectedIntervalMinutes, &rule.DeadAfterMinutes, &rule.WorkerScope,
			&rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan monitoring rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// SignalStateRepo implements monitoring.SignalStore.
type SignalStateRepo struct{ db *sql.DB }

func NewSignalStateRepo(db *sql.DB) *SignalStateRepo { return &SignalStateRepo{db: db} }

func (r *SignalStateRepo) Get(ctx context.Context, ruleID string) (*domain.SignalState, error) {
	s := &domain.SignalState{}
	err := r.db.QueryRowContext(ctx, `
		SELECT rule_id, state, last_seen_at, count_1h, count_12h, count_24h, updated_at
		FROM signal_states WHERE rule_id = $1
	`, ruleID).Scan(&s.RuleID, &s.State, &s.LastSeenAt, &s.Count1h, &s.Count12h, &s.Count24h, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return &domain.SignalState{RuleID: ruleID, State: domain.SignalDead}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signal state: %w", err)
	}
	return s, nil
}

func (r *SignalStateRepo) Upsert(ctx context.Context, state domain.SignalState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signal_states (rule_id, state, last_seen_at, count_1h, count_12h, count_24h, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (rule_id) DO UPDATE SET
			state = EXCLUDED.state, last_seen_at = EXCLUDED.last_seen_at,
			count_1h = EXCLUDED.count_1h, count_12h = EXCLUDED.count_12h,
			count_24h = EXCLUDED.count_24h, updated_at = EXCLUDED.updated_at
	`, state.RuleID, state.State, state.LastSeenAt, state.Count1h, state.Count12h, state.Count24h, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert signal state: %w", err)
	}
	return nil
}

func (r *SignalStateRepo) ListAll(ctx context.Context) ([]domain.SignalState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rule_id, state, last_seen_at, count_1h, count_12h, count_24h, updated_at FROM signal_states
	`)
	if err != nil {
		return nil, fmt.Errorf("list signal states: %w", err)
	}
	defer rows.Close()

	var out []domain.SignalState
	for rows.Next() {
		var s domain.SignalState
		if err := rows.Scan(&s.RuleID, &s.State, &s.LastSeenAt, &s.Count1h, &s.Count12h, &s.Count24h, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan signal state: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HitLogRepo implements monitoring.HitLogStore. It persists exactly
// the four fields the spec allows: sender, subject, recipient,
// received_at (plus id/rule_id/created_at for bookkeeping).
type HitLogRepo struct{ db *sql.DB }

func NewHitLogRepo(db *sql.DB) *HitLogRepo { return &HitLogRepo{db: db} }

func (r *HitLogRepo) Append(ctx context.Context, hit domain.HitLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hit_logs (id, rule_id, sender, subject, recipient, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, hit.ID, hit.RuleID, hit.Sender, hit.Subject, hit.Recipient, hit.ReceivedAt, hit.CreatedAt)
	if err != nil {
		return fmt.Errorf("append hit log: %w", err)
	}
	return nil
}

func (r *HitLogRepo) CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM hit_logs WHERE rule_id = $1 AND received_at >= $2
	`, ruleID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count hit logs since: %w", err)
	}
	return n, nil
}

// AlertRepo implements monitoring.AlertStore.
type AlertRepo struct{ db *sql.DB }

func NewAlertRepo(db *sql.DB) *AlertRepo { return &AlertRepo{db: db} }

func (r *AlertRepo) Create(ctx context.Context, alert domain.Alert) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts
			(id, rule_id, alert_type, previous_state, current_state, gap_minutes,
			 count_1h, count_12h, count_24h, message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, alert.ID, alert.RuleID, alert.AlertType, alert.PreviousState, alert.CurrentState,
		alert.GapMinutes, alert.Count1h, alert.Count12h, alert.Count24h, alert.Message,
		alert.SentAt, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}
