package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
)

// LogRepo implements tasks.LogStore: bulk-insert of structured log
// rows produced by the C3 filter path and drained by C10's log batch
// processor.
type LogRepo struct{ db *sql.DB }

// NewLogRepo creates a Postgres-backed task-log repository.
func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{db: db} }

// BulkInsert writes every row in a single multi-values INSERT so one
// log batch costs one round trip.
func (r *LogRepo) BulkInsert(ctx context.Context, rows []domain.LogTaskData) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO task_log_entries (id, category, worker_name, message, rule_id, created_at) VALUES `
	args := make([]interface{}, 0, len(rows)*6)
	for i, row := range rows {
		if i > 0 {
			query += ", "
		}
		base := i * 6
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, NOW())", base+1, base+2, base+3, base+4, base+5)
		args = append(args, uuid.New().String(), row.Category, row.WorkerName, row.Message, row.RuleID)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk insert task log entries: %w", err)
	}
	return nil
}

// WatchHitRepo implements tasks.WatchStore: bulk per-rule hit-count
// increments for watch-category rules, re-matched asynchronously by
// C10's watch batch processor.
type WatchHitRepo struct{ db *sql.DB }

// NewWatchHitRepo creates a Postgres-backed watch-hit repository.
func NewWatchHitRepo(db *sql.DB) *WatchHitRepo { return &WatchHitRepo{db: db} }

// BulkIncrementHits adds count to the rule's running total_processed
// counter, sharing rule_stats with C10's stats batch processor so a
// rule's processed count is the sum of its stats-task hits and its
// asynchronously re-matched watch hits.
func (r *WatchHitRepo) BulkIncrementHits(ctx context.Context, ruleID string, count int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rule_stats (rule_id, total_processed, deleted_count, error_count, last_updated)
		VALUES ($1, $2, 0, 0, NOW())
		ON CONFLICT (rule_id) DO UPDATE SET
			total_processed = rule_stats.total_processed + EXCLUDED.total_processed,
			last_updated = EXCLUDED.last_updated
	`, ruleID, count)
	if err != nil {
		return fmt.Errorf("bulk increment watch hits: %w", err)
	}
	return nil
}
