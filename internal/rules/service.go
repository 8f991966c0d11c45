package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/matcher"
	"github.com/ignite/filterplane/internal/platform/dberr"
	"github.com/ignite/filterplane/internal/platform/logger"
)

// Enqueuer is the narrow slice of tasks.Queue's Enqueue method the
// rule-mutation audit trail needs; kept as its own interface so this
// package does not import internal/tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ domain.TaskType, data interface{}) error
}

// Service is the write boundary for filter rules: it validates a
// pattern against its match mode, persists through Store, and mutates
// Cache before returning so the rule is immediately visible to readers.
type Service struct {
	store   Store
	cache   *Cache
	matcher *matcher.Matcher
	audit   Enqueuer
}

// NewService wires a Service from its four collaborators. The audit
// trail is disabled when audit is nil.
func NewService(store Store, cache *Cache, m *matcher.Matcher, audit Enqueuer) *Service {
	return &Service{store: store, cache: cache, matcher: m, audit: audit}
}

// logMutation enqueues an admin_action log row for one rule mutation.
// Best-effort: a full task queue must never block or fail the rule
// mutation it is merely recording.
func (s *Service) logMutation(ctx context.Context, action, workerName string, ruleID string) {
	if s.audit == nil {
		return
	}
	id := ruleID
	err := s.audit.Enqueue(ctx, domain.TaskLog, domain.LogTaskData{
		Category:   domain.LogAdminAction,
		WorkerName: workerName,
		Message:    action,
		RuleID:     &id,
	})
	if err != nil {
		logger.Warn("rules: audit log enqueue failed", "rule_id", ruleID, "error", err.Error())
	}
}

// Create validates and persists a new rule, then makes it visible in
// Cache before returning.
func (s *Service) Create(ctx context.Context, rule domain.FilterRule) (domain.FilterRule, error) {
	if rule.Pattern == "" {
		return domain.FilterRule{}, &dberr.ValidationError{Field: "pattern", Message: "must not be empty"}
	}
	if err := s.matcher.Validate(rule.Pattern, rule.MatchMode); err != nil {
		return domain.FilterRule{}, &dberr.ValidationError{Field: "pattern", Message: err.Error()}
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.store.Create(ctx, &rule); err != nil {
		return domain.FilterRule{}, fmt.Errorf("rules: create: %w", err)
	}
	s.cache.Put(rule)
	s.logMutation(ctx, fmt.Sprintf("rule created: category=%s pattern=%q", rule.Category, rule.Pattern), domain.GlobalWorker, rule.ID)
	return rule, nil
}

// Update validates and persists changes to an existing rule, refreshing
// Cache on success.
func (s *Service) Update(ctx context.Context, rule domain.FilterRule) error {
	if err := s.matcher.Validate(rule.Pattern, rule.MatchMode); err != nil {
		return &dberr.ValidationError{Field: "pattern", Message: err.Error()}
	}
	rule.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, &rule); err != nil {
		return fmt.Errorf("rules: update: %w", err)
	}
	s.cache.Put(rule)
	s.logMutation(ctx, fmt.Sprintf("rule updated: category=%s pattern=%q enabled=%t", rule.Category, rule.Pattern, rule.Enabled), domain.GlobalWorker, rule.ID)
	return nil
}

// Delete removes a rule from both Store and Cache.
func (s *Service) Delete(ctx context.Context, category domain.RuleCategory, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("rules: delete: %w", err)
	}
	s.cache.Remove(category, id)
	s.logMutation(ctx, fmt.Sprintf("rule deleted: category=%s", category), domain.GlobalWorker, id)
	return nil
}

// Cache exposes the read path used by the filter engine.
func (s *Service) Cache() *Cache { return s.cache }
