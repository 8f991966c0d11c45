package domain

import "time"

// RuleCategory is the closed set of filter-rule categories.
type RuleCategory string

const (
	CategoryWhitelist RuleCategory = "whitelist"
	CategoryBlacklist RuleCategory = "blacklist"
	CategoryDynamic   RuleCategory = "dynamic"
	CategoryWatch     RuleCategory = "watch"
)

// MatchType names the field of an email a rule is evaluated against.
type MatchType string

const (
	MatchTypeSender  MatchType = "sender"
	MatchTypeSubject MatchType = "subject"
	MatchTypeDomain  MatchType = "domain"
)

// MatchMode is the comparison strategy applied to a rule's pattern.
type MatchMode string

const (
	ModeExact      MatchMode = "exact"
	ModeContains   MatchMode = "contains"
	ModeStartsWith MatchMode = "startsWith"
	ModeEndsWith   MatchMode = "endsWith"
	ModeRegex      MatchMode = "regex"
)

// FilterRule is a static or dynamically-learned filtering rule.
type FilterRule struct {
	ID        string       `json:"id" db:"id"`
	WorkerID  *string      `json:"worker_id,omitempty" db:"worker_id"`
	Category  RuleCategory `json:"category" db:"category"`
	MatchType MatchType    `json:"match_type" db:"match_type"`
	MatchMode MatchMode    `json:"match_mode" db:"match_mode"`
	Pattern   string       `json:"pattern" db:"pattern"`
	Enabled   bool         `json:"enabled" db:"enabled"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	LastHitAt *time.Time   `json:"last_hit_at,omitempty" db:"last_hit_at"`
}

// RuleStats is the side-table of per-rule counters owned by the async
// task processor (C10); the filter engine never writes to it directly.
type RuleStats struct {
	RuleID         string    `json:"rule_id" db:"rule_id"`
	TotalProcessed int64     `json:"total_processed" db:"total_processed"`
	DeletedCount   int64     `json:"deleted_count" db:"deleted_count"`
	ErrorCount     int64     `json:"error_count" db:"error_count"`
	LastUpdated    time.Time `json:"last_updated" db:"last_updated"`
}

// DynamicConfig is the process-wide key/value map governing the dynamic
// rule detector (C4). Unknown keys must be preserved verbatim by storage.
type DynamicConfig struct {
	Enabled                  bool    `json:"enabled" yaml:"enabled"`
	TimeWindowMinutes        int     `json:"timeWindowMinutes" yaml:"timeWindowMinutes"`
	ThresholdCount           int     `json:"thresholdCount" yaml:"thresholdCount"`
	TimeSpanThresholdMinutes float64 `json:"timeSpanThresholdMinutes" yaml:"timeSpanThresholdMinutes"`
	ExpirationHours          int     `json:"expirationHours" yaml:"expirationHours"`
	LastHitThresholdHours    int     `json:"lastHitThresholdHours" yaml:"lastHitThresholdHours"`

	// Extra preserves any unrecognized keys round-tripped through storage.
	Extra map[string]interface{} `json:"-" yaml:"-"`
}

// DefaultDynamicConfig returns the defaults fixed by spec.md §3.
func DefaultDynamicConfig() DynamicConfig {
	return DynamicConfig{
		Enabled:                  true,
		TimeWindowMinutes:        30,
		ThresholdCount:           30,
		TimeSpanThresholdMinutes: 3.0,
		ExpirationHours:          48,
		LastHitThresholdHours:    72,
	}
}

// EmailSubjectTracker is the ephemeral row the dynamic detector appends to
// before deciding whether a subject has crossed its creation thresholds.
type EmailSubjectTracker struct {
	WorkerID    *string   `json:"worker_id,omitempty" db:"worker_id"`
	SubjectHash uint64    `json:"subject_hash" db:"subject_hash"`
	Subject     string    `json:"subject" db:"subject"`
	ReceivedAt  time.Time `json:"received_at" db:"received_at"`
}
