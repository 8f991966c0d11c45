// Package ratio implements the Ratio Monitor (C12): compares hit
// counters between two Monitoring Rules over a rolling time window and
// emits HEALTHY/WARN/ALERT transitions from an ordered step function.
package ratio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
)

// HitCounter is the subset of the Hit Log store the ratio monitor
// needs: a count of hits for a rule since a point in time.
type HitCounter interface {
	CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error)
}

// Store is the persistence boundary for ratio monitors, their current
// state, and their alert history.
type Store interface {
	ListEnabled(ctx context.Context) ([]domain.RatioMonitor, error)
	GetState(ctx context.Context, monitorID string) (*domain.RatioMonitorState, error)
	UpsertState(ctx context.Context, state domain.RatioMonitorState) error
	CreateAlert(ctx context.Context, alert domain.RatioAlertRecord) error
}

// Service evaluates ratio monitors on each scheduler stateTick.
type Service struct {
	store Store
	hits  HitCounter
}

// NewService wires a ratio Service.
func NewService(store Store, hits HitCounter) *Service {
	return &Service{store: store, hits: hits}
}

// currentRatio is second_count/first_count, with the spec's explicit
// zero-handling: first_count=0 and second_count=0 is ratio 0 (nothing
// to compare yet); first_count=0 and second_count>0 is +Inf, which
// evaluateState maps straight to the tightest step's state.
func currentRatio(first, second int64) float64 {
	if first == 0 {
		if second == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return float64(second) / float64(first)
}

// evaluateState walks steps from tightest (lowest RatioBelow) to
// loosest and returns the first one the ratio satisfies; if the ratio
// clears every step, the monitor is HEALTHY. A +Inf ratio always takes
// the tightest step's state.
func evaluateState(ratio float64, steps []domain.RatioStep) domain.RatioState {
	sorted := make([]domain.RatioStep, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RatioBelow < sorted[j].RatioBelow })

	if math.IsInf(ratio, 1) && len(sorted) > 0 {
		return sorted[0].State
	}

	for _, step := range sorted {
		if ratio < step.RatioBelow {
			return step.State
		}
	}
	return domain.RatioHealthy
}

// EvaluateAll recomputes every enabled ratio monitor's counts and
// state, persisting a RatioAlertRecord on every transition.
func (s *Service) EvaluateAll(ctx context.Context) error {
	monitors, err := s.store.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("ratio: list enabled monitors: %w", err)
	}

	for _, m := range monitors {
		if err := s.evaluateOne(ctx, m); err != nil {
			return fmt.Errorf("ratio: evaluate monitor %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *Service) evaluateOne(ctx context.Context, m domain.RatioMonitor) error {
	since := time.Now().Add(-m.TimeWindow)

	firstCount, err := s.hits.CountSince(ctx, m.FirstRuleID, since)
	if err != nil {
		return fmt.Errorf("count first rule: %w", err)
	}
	secondCount, err := s.hits.CountSince(ctx, m.SecondRuleID, since)
	if err != nil {
		return fmt.Errorf("count second rule: %w", err)
	}

	ratio := currentRatio(firstCount, secondCount)
	newState := evaluateState(ratio, m.Steps)

	previous, err := s.store.GetState(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}

	if err := s.store.UpsertState(ctx, domain.RatioMonitorState{
		MonitorID:    m.ID,
		State:        newState,
		FirstCount:   firstCount,
		SecondCount:  secondCount,
		CurrentRatio: ratio,
		UpdatedAt:    time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	if previous.State != newState {
		if err := s.store.CreateAlert(ctx, domain.RatioAlertRecord{
			ID:            uuid.New().String(),
			MonitorID:     m.ID,
			PreviousState: previous.State,
			CurrentState:  newState,
			FirstCount:    firstCount,
			SecondCount:   secondCount,
			CurrentRatio:  ratio,
			CreatedAt:     time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("create ratio alert: %w", err)
		}
	}

	return nil
}
