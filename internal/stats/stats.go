// Package stats owns the Subject Stats side table (C5): per
// (subject-hash, merchant-domain, worker) email counters and a
// focus flag administrators can set to pin a subject to dashboards,
// plus the aggregation views the campaign and monitoring layers read
// from.
package stats

import (
	"context"
	"time"

	"github.com/ignite/filterplane/internal/domain"
)

// Store is the persistence boundary for Subject Stats rows.
type Store interface {
	// Increment upserts the counter row for
	// (subjectHash, merchantDomain, workerName), creating it with
	// email_count=1 on first sight and bumping last_seen_at otherwise.
	Increment(ctx context.Context, subject string, subjectHash uint64, merchantDomain, workerName string, at time.Time) error
	SetFocused(ctx context.Context, id string, focused bool) error
	Get(ctx context.Context, subjectHash uint64, merchantDomain, workerName string) (*domain.SubjectStats, error)
	TopByMerchant(ctx context.Context, merchantDomain string, limit int) ([]domain.SubjectStats, error)
	Focused(ctx context.Context, workerName string) ([]domain.SubjectStats, error)
}

// Service is the read/write boundary the async task processor (C10)
// and admin surfaces use; it exists mainly to keep callers from needing
// to know the uuid-generation and zero-count-on-create details.
type Service struct {
	store Store
}

// NewService wires a Service from its Store.
func NewService(store Store) *Service { return &Service{store: store} }

// Record increments the counter for one inbound email's subject.
func (s *Service) Record(ctx context.Context, subject string, subjectHash uint64, merchantDomain, workerName string, at time.Time) error {
	return s.store.Increment(ctx, subject, subjectHash, merchantDomain, workerName, at)
}

// SetFocused toggles the focus flag for a stats row.
func (s *Service) SetFocused(ctx context.Context, id string, focused bool) error {
	return s.store.SetFocused(ctx, id, focused)
}

// TopByMerchant returns the highest-volume subjects for a merchant,
// an aggregation view over the counter table.
func (s *Service) TopByMerchant(ctx context.Context, merchantDomain string, limit int) ([]domain.SubjectStats, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.TopByMerchant(ctx, merchantDomain, limit)
}

// Focused returns all subjects an admin has pinned for a worker.
func (s *Service) Focused(ctx context.Context, workerName string) ([]domain.SubjectStats, error) {
	return s.store.Focused(ctx, workerName)
}
