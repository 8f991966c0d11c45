package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/filterplane/internal/domain"
)

// TrackerRepo implements dynamic.TrackerStore: the ephemeral subject
// tracker rows the dynamic rule detector (C4) appends to and sweeps
// ahead of its count/time-span thresholds.
type TrackerRepo struct{ db *sql.DB }

// NewTrackerRepo creates a Postgres-backed subject-tracker repository.
func NewTrackerRepo(db *sql.DB) *TrackerRepo { return &TrackerRepo{db: db} }

func (r *TrackerRepo) Append(ctx context.Context, row domain.EmailSubjectTracker) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_subject_tracker (worker_id, subject_hash, subject, received_at)
		VALUES ($1, $2, $3, $4)
	`, row.WorkerID, int64(row.SubjectHash), row.Subject, row.ReceivedAt)
	if err != nil {
		return fmt.Errorf("append subject tracker row: %w", err)
	}
	return nil
}

func (r *TrackerRepo) CountInWindow(ctx context.Context, hash uint64, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM email_subject_tracker
		WHERE subject_hash = $1 AND received_at >= $2 AND received_at <= $3
	`, int64(hash), from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subject tracker window: %w", err)
	}
	return count, nil
}

func (r *TrackerRepo) FirstNInWindow(ctx context.Context, hash uint64, from, to time.Time, n int) ([]domain.EmailSubjectTracker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT worker_id, subject_hash, subject, received_at FROM email_subject_tracker
		WHERE subject_hash = $1 AND received_at >= $2 AND received_at <= $3
		ORDER BY received_at ASC
		LIMIT $4
	`, int64(hash), from, to, n)
	if err != nil {
		return nil, fmt.Errorf("first-n subject tracker window: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailSubjectTracker
	for rows.Next() {
		var row domain.EmailSubjectTracker
		var hash int64
		if err := rows.Scan(&row.WorkerID, &hash, &row.Subject, &row.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan subject tracker row: %w", err)
		}
		row.SubjectHash = uint64(hash)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *TrackerRepo) PurgeOlderThan(ctx context.Context, hash uint64, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM email_subject_tracker WHERE subject_hash = $1 AND received_at < $2
	`, int64(hash), before)
	if err != nil {
		return fmt.Errorf("purge subject tracker rows: %w", err)
	}
	return nil
}
