package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/platform/dberr"
)

// StatsRepo implements stats.Store against PostgreSQL.
type StatsRepo struct{ db *sql.DB }

// NewStatsRepo creates a Postgres-backed subject stats repository.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

func (r *StatsRepo) Increment(ctx context.Context, subject string, subjectHash uint64, merchantDomain, workerName string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subject_stats (id, subject, subject_hash, merchant_domain, worker_name,
			email_count, is_focused, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, false, $6, $6, $6, $6)
		ON CONFLICT (subject_hash, merchant_domain, worker_name) DO UPDATE SET
			email_count = subject_stats.email_count + 1,
			last_seen_at = $6,
			updated_at = $6
	`, uuid.New().String(), subject, int64(subjectHash), merchantDomain, workerName, at)
	if err != nil {
		return fmt.Errorf("increment subject stats: %w", err)
	}
	return nil
}

func (r *StatsRepo) SetFocused(ctx context.Context, id string, focused bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subject_stats SET is_focused = $1, updated_at = NOW() WHERE id = $2`, focused, id)
	if err != nil {
		return fmt.Errorf("set focused: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (r *StatsRepo) Get(ctx context.Context, subjectHash uint64, merchantDomain, workerName string) (*domain.SubjectStats, error) {
	s := &domain.SubjectStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject, subject_hash, merchant_domain, worker_name, email_count,
		       is_focused, first_seen_at, last_seen_at, created_at, updated_at
		FROM subject_stats WHERE subject_hash = $1 AND merchant_domain = $2 AND worker_name = $3
	`, int64(subjectHash), merchantDomain, workerName).Scan(
		&s.ID, &s.Subject, &s.SubjectHash, &s.MerchantDomain, &s.WorkerName, &s.EmailCount,
		&s.IsFocused, &s.FirstSeenAt, &s.LastSeenAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, dberr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject stats: %w", err)
	}
	return s, nil
}

func (r *StatsRepo) TopByMerchant(ctx context.Context, merchantDomain string, limit int) ([]domain.SubjectStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject, subject_hash, merchant_domain, worker_name, email_count,
		       is_focused, first_seen_at, last_seen_at, created_at, updated_at
		FROM subject_stats WHERE merchant_domain = $1 ORDER BY email_count DESC LIMIT $2
	`, merchantDomain, limit)
	if err != nil {
		return nil, fmt.Errorf("top by merchant: %w", err)
	}
	defer rows.Close()
	return scanSubjectStats(rows)
}

func (r *StatsRepo) Focused(ctx context.Context, workerName string) ([]domain.SubjectStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject, subject_hash, merchant_domain, worker_name, email_count,
		       is_focused, first_seen_at, last_seen_at, created_at, updated_at
		FROM subject_stats WHERE worker_name = $1 AND is_focused = true ORDER BY last_seen_at DESC
	`, workerName)
	if err != nil {
		return nil, fmt.Errorf("focused: %w", err)
	}
	defer rows.Close()
	return scanSubjectStats(rows)
}

func scanSubjectStats(rows *sql.Rows) ([]domain.SubjectStats, error) {
	var out []domain.SubjectStats
	for rows.Next() {
		var s domain.SubjectStats
		if err := rows.Scan(&s.ID, &s.Subject, &s.SubjectHash, &s.MerchantDomain, &s.WorkerName,
			&s.EmailCount, &s.IsFocused, &s.FirstSeenAt, &s.LastSeenAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
