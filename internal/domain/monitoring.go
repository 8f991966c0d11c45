package domain

import "time"

// SignalStateValue is the tri-state liveness classification of a monitored
// subject stream.
type SignalStateValue string

const (
	SignalActive SignalStateValue = "ACTIVE"
	SignalWeak   SignalStateValue = "WEAK"
	SignalDead   SignalStateValue = "DEAD"
)

// signalRank orders DEAD < WEAK < ACTIVE for the list-sort invariant
// (spec.md §8 invariant 12).
var signalRank = map[SignalStateValue]int{
	SignalDead:   0,
	SignalWeak:   1,
	SignalActive: 2,
}

// Rank returns the sort weight of the state (DEAD=0, WEAK=1, ACTIVE=2).
func (s SignalStateValue) Rank() int { return signalRank[s] }

// MonitoringRule watches for a subject pattern from a worker scope and
// expects hits within expected/dead intervals.
type MonitoringRule struct {
	ID                      string    `json:"id" db:"id"`
	Merchant                string    `json:"merchant" db:"merchant"`
	Name                    string    `json:"name" db:"name"`
	SubjectPattern          string    `json:"subject_pattern" db:"subject_pattern"`
	MatchMode               MatchMode `json:"match_mode" db:"match_mode"`
	ExpectedIntervalMinutes int       `json:"expected_interval_minutes" db:"expected_interval_minutes"`
	DeadAfterMinutes        int       `json:"dead_after_minutes" db:"dead_after_minutes"`
	WorkerScope             string    `json:"worker_scope" db:"worker_scope"`
	Enabled                 bool      `json:"enabled" db:"enabled"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// SignalState is the one-to-one liveness record for a Monitoring Rule.
type SignalState struct {
	RuleID     string           `json:"rule_id" db:"rule_id"`
	State      SignalStateValue `json:"state" db:"state"`
	LastSeenAt *time.Time       `json:"last_seen_at,omitempty" db:"last_seen_at"`
	Count1h    int64            `json:"count_1h" db:"count_1h"`
	Count12h   int64            `json:"count_12h" db:"count_12h"`
	Count24h   int64            `json:"count_24h" db:"count_24h"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// HitLog is the only persisted record of an inbound email the monitoring
// core is permitted to keep: exactly these four fields, nothing else.
type HitLog struct {
	ID         string    `json:"id" db:"id"`
	RuleID     string    `json:"rule_id" db:"rule_id"`
	Sender     string    `json:"sender" db:"sender"`
	Subject    string    `json:"subject" db:"subject"`
	Recipient  string    `json:"recipient" db:"recipient"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// AlertType is the closed set of signal-state-transition alert kinds.
type AlertType string

const (
	AlertSignalRecovered AlertType = "SIGNAL_RECOVERED"
	AlertSignalWeakened  AlertType = "SIGNAL_WEAKENED"
	AlertSignalDead      AlertType = "SIGNAL_DEAD"
)

// Alert records a signal-state transition for a Monitoring Rule.
type Alert struct {
	ID            string           `json:"id" db:"id"`
	RuleID        string           `json:"rule_id" db:"rule_id"`
	AlertType     AlertType        `json:"alert_type" db:"alert_type"`
	PreviousState SignalStateValue `json:"previous_state" db:"previous_state"`
	CurrentState  SignalStateValue `json:"current_state" db:"current_state"`
	GapMinutes    float64          `json:"gap_minutes" db:"gap_minutes"`
	Count1h       int64            `json:"count_1h" db:"count_1h"`
	Count12h      int64            `json:"count_12h" db:"count_12h"`
	Count24h      int64            `json:"count_24h" db:"count_24h"`
	Message       string           `json:"message" db:"message"`
	SentAt        *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// RatioState is the tri-state health classification of a ratio monitor.
type RatioState string

const (
	RatioHealthy RatioState = "HEALTHY"
	RatioWarn    RatioState = "WARN"
	RatioAlert   RatioState = "ALERT"
)

// RatioStep is one ordered threshold of a ratio monitor's step function.
type RatioStep struct {
	RatioBelow float64    `json:"ratio_below"`
	State      RatioState `json:"state"`
}

// RatioMonitor compares hit counters between two monitoring rules.
type RatioMonitor struct {
	ID               string        `json:"id" db:"id"`
	Name             string        `json:"name" db:"name"`
	Tag              string        `json:"tag" db:"tag"`
	FirstRuleID      string        `json:"first_rule_id" db:"first_rule_id"`
	SecondRuleID     string        `json:"second_rule_id" db:"second_rule_id"`
	Steps            []RatioStep   `json:"steps" db:"-"`
	ThresholdPercent float64       `json:"threshold_percent" db:"threshold_percent"`
	TimeWindow       time.Duration `json:"time_window" db:"-"`
	WorkerScope      string        `json:"worker_scope" db:"worker_scope"`
	Enabled          bool          `json:"enabled" db:"enabled"`
}

// RatioMonitorState is the current evaluated state of a ratio monitor.
type RatioMonitorState struct {
	MonitorID    string     `json:"monitor_id" db:"monitor_id"`
	State        RatioState `json:"state" db:"state"`
	FirstCount   int64      `json:"first_count" db:"first_count"`
	SecondCount  int64      `json:"second_count" db:"second_count"`
	CurrentRatio float64    `json:"current_ratio" db:"current_ratio"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// RatioAlertRecord records a ratio-monitor state transition, mirroring Alert.
type RatioAlertRecord struct {
	ID            string     `json:"id" db:"id"`
	MonitorID     string     `json:"monitor_id" db:"monitor_id"`
	PreviousState RatioState `json:"previous_state" db:"previous_state"`
	CurrentState  RatioState `json:"current_state" db:"current_state"`
	FirstCount    int64      `json:"first_count" db:"first_count"`
	SecondCount   int64      `json:"second_count" db:"second_count"`
	CurrentRatio  float64    `json:"current_ratio" db:"current_ratio"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
