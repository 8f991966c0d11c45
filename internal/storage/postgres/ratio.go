package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/filterplane/internal/domain"
)

// RatioMonitorRepo implements ratio.Store.
type RatioMonitorRepo struct{ db *sql.DB }

func NewRatioMonitorRepo(db *sql.DB) *RatioMonitorRepo { return &RatioMonitorRepo{db: db} }

func (r *RatioMonitorRepo) ListEnabled(ctx context.Context) ([]domain.RatioMonitor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, tag, first_rule_id, second_rule_id, threshold_percent,
		       time_window_seconds, worker_scope, enabled, step_ratios, step_states
		FROM ratio_monitors WHERE enabled = true
	`)
	if err != nil {
		return nil, fmt.Errorf("list enabled ratio monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.RatioMonitor
	for rows.Next() {
		var m domain.RatioMonitor
		var windowSeconds int64
		var stepRatios pq.Float64Array
		var stepStates pq.StringArray
		if err := rows.Scan(&m.ID, &m.Name, &m.Tag, &m.FirstRuleID, &m.SecondRuleID,
			&m.ThresholdPercent, &windowSeconds, &m.WorkerScope, &m.Enabled, &stepRatios, &stepStates); err != nil {
			return nil, fmt.Errorf("scan ratio monitor: %w", err)
		}
		m.TimeWindow = time.Duration(windowSeconds) * time.Second
		for i := range stepRatios {
			state := domain.RatioHealthy
			if i < len(stepStates) {
				state = domain.RatioState(stepStates[i])
			}
			m.Steps = append(m.Steps, domain.RatioStep{RatioBelow: stepRatios[i], State: state})
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *RatioMonitorRepo) GetState(ctx context.Context, monitorID string) (*domain.RatioMonitorState, error) {
	s := &domain.RatioMonitorState{}
	err := r.db.QueryRowContext(ctx, `
		SELECT monitor_id, state, first_count, second_count, current_ratio, updated_at
		FROM ratio_monitor_states WHERE monitor_id = $1
	`, monitorID).Scan(&s.MonitorID, &s.State, &s.FirstCount, &s.SecondCount, &s.CurrentRatio, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return &domain.RatioMonitorState{MonitorID: monitorID, State: domain.RatioHealthy}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratio monitor state: %w", err)
	}
	return s, nil
}

func (r *RatioMonitorRepo) UpsertState(ctx context.Context, state domain.RatioMonitorState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratio_monitor_states (monitor_id, state, first_count, second_count, current_ratio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (monitor_id) DO UPDATE SET
			state = EXCLUDED.state, first_count = EXCLUDED.first_count,
			second_count = EXCLUDED.second_count, current_ratio = EXCLUDED.current_ratio,
			updated_at = EXCLUDED.updated_at
	`, state.MonitorID, state.State, state.FirstCount, state.SecondCount, state.CurrentRatio, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert ratio monitor state: %w", err)
	}
	return nil
}

func (r *RatioMonitorRepo) CreateAlert(ctx context.Context, alert domain.RatioAlertRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratio_alerts
			(id, monitor_id, previous_state, current_state, first_count, second_count, current_ratio, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, alert.ID, alert.MonitorID, alert.PreviousState, alert.CurrentState,
		alert.FirstCount, alert.SecondCount, alert.CurrentRatio, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ratio alert: %w", err)
	}
	return nil
}
