package monitoring

import (
	"context"
	"time"

	"github.com/ignite/filterplane/internal/domain"
)

// RuleStore is the persistence boundary for Monitoring Rules.
type RuleStore interface {
	Create(ctx context.Context, rule *domain.MonitoringRule) error
	Get(ctx context.Context, id string) (*domain.MonitoringRule, error)
	ListEnabled(ctx context.Context) ([]domain.MonitoringRule, error)
}

// SignalStore is the persistence boundary for per-rule signal state.
type SignalStore interface {
	Get(ctx context.Context, ruleID string) (*domain.SignalState, error)
	Upsert(ctx context.Context, state domain.SignalState) error
	ListAll(ctx context.Context) ([]domain.SignalState, error)
}

// HitLogStore persists the four-field Hit Log rows and nothing else.
type HitLogStore interface {
	Append(ctx context.Context, hit domain.HitLog) error
	CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error)
}

// AlertStore persists signal-state-transition alerts.
type AlertStore interface {
	Create(ctx context.Context, alert domain.Alert) error
}
