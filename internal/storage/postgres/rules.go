package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/platform/dberr"
)

// RuleRepo implements rules.Store against PostgreSQL.
type RuleRepo struct{ db *sql.DB }

// NewRuleRepo creates a Postgres-backed filter rule repository.
func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) Create(ctx context.Context, rule *domain.FilterRule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO filter_rules
			(id, worker_id, category, match_type, match_mode, pattern, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rule.ID, rule.WorkerID, rule.Category, rule.MatchType, rule.MatchMode,
		rule.Pattern, rule.Enabled, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create filter rule: %w", err)
	}
	return nil
}

func (r *RuleRepo) Update(ctx context.Context, rule *domain.FilterRule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE filter_rules
		SET worker_id = $1, category = $2, match_type = $3, match_mode = $4,
		    pattern = $5, enabled = $6, updated_at = $7
		WHERE id = $8
	`, rule.WorkerID, rule.Category, rule.MatchType, rule.MatchMode,
		rule.Pattern, rule.Enabled, rule.UpdatedAt, rule.ID)
	if err != nil {
		return fmt.Errorf("update filter rule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (r *RuleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM filter_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete filter rule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (r *RuleRepo) Get(ctx context.Context, id string) (*domain.FilterRule, error) {
	rule := &domain.FilterRule{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, worker_id, category, match_type, match_mode, pattern,
		       enabled, created_at, updated_at, last_hit_at
		FROM filter_rules WHERE id = $1
	`, id).Scan(&rule.ID, &rule.WorkerID, &rule.Category, &rule.MatchType, &rule.MatchMode,
		&rule.Pattern, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt, &rule.LastHitAt)
	if err == sql.ErrNoRows {
		return nil, dberr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get filter rule: %w", err)
	}
	return rule, nil
}

func (r *RuleRepo) ListByCategory(ctx context.Context, category domain.RuleCategory) ([]domain.FilterRule, error) {
	return r.list(ctx, `
		SELECT id, worker_id, category, match_type, match_mode, pattern,
		       enabled, created_at, updated_at, last_hit_at
		FROM filter_rules WHERE category = $1 ORDER BY created_at ASC, id ASC
	`, category)
}

func (r *RuleRepo) ListAll(ctx context.Context) ([]domain.FilterRule, error) {
	return r.list(ctx, `
		SELECT id, worker_id, category, match_type, match_mode, pattern,
		       enabled, created_at, updated_at, last_hit_at
		FROM filter_rules ORDER BY created_at ASC, id ASC
	`)
}

func (r *RuleRepo) list(ctx context.Context, query string, args ...interface{}) ([]domain.FilterRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list filter rules: %w", err)
	}
	defer rows.Close()

	var out []domain.FilterRule
	for rows.Next() {
		var rule domain.FilterRule
		if err := rows.Scan(&rule.ID, &rule.WorkerID, &rule.Category, &rule.MatchType, &rule.MatchMode,
			&rule.Pattern, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt, &rule.LastHitAt); err != nil {
			return nil, fmt.Errorf("scan filter rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) TouchLastHit(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE filter_rules SET last_hit_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch last hit: %w", err)
	}
	return nil
}

func (r *RuleRepo) UpsertStats(ctx context.Context, stats domain.RuleStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rule_stats (rule_id, total_processed, deleted_count, error_count, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (rule_id) DO UPDATE SET
			total_processed = rule_stats.total_processed + EXCLUDED.total_processed,
			deleted_count = rule_stats.deleted_count + EXCLUDED.deleted_count,
			error_count = rule_stats.error_count + EXCLUDED.error_count,
			last_updated = EXCLUDED.last_updated
	`, stats.RuleID, stats.TotalProcessed, stats.DeletedCount, stats.ErrorCount, stats.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert rule stats: %w", err)
	}
	return nil
}
