package domain

import "time"

// TaskType is the closed set of async follow-up work kinds fanned out by
// the task processor (C10).
type TaskType string

const (
	TaskStats      TaskType = "stats"
	TaskLog        TaskType = "log"
	TaskWatch      TaskType = "watch"
	TaskDynamic    TaskType = "dynamic"
	TaskCampaign   TaskType = "campaign"
	TaskMonitoring TaskType = "monitoring"
)

// LogCategory is the closed set of structured-log row categories the log
// processor batches.
type LogCategory string

const (
	LogEmailForward LogCategory = "email_forward"
	LogEmailDrop    LogCategory = "email_drop"
	LogAdminAction  LogCategory = "admin_action"
	LogSystem       LogCategory = "system"
)

// TaskEnvelope is one unit of async follow-up work enqueued by the
// synchronous filter path.
type TaskEnvelope struct {
	ID         string      `json:"id"`
	Type       TaskType    `json:"type"`
	Data       interface{} `json:"data"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// StatsTaskData is the payload for a TaskStats envelope.
type StatsTaskData struct {
	RuleID    string `json:"rule_id,omitempty"`
	Processed bool   `json:"processed"`
	Dropped   bool   `json:"dropped"`
}

// LogTaskData is the payload for a TaskLog envelope.
type LogTaskData struct {
	Category   LogCategory `json:"category"`
	WorkerName string      `json:"worker_name"`
	Message    string      `json:"message"`
	RuleID     *string     `json:"rule_id,omitempty"`
}

// WatchTaskData is the payload for a TaskWatch envelope.
type WatchTaskData struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	WorkerName string `json:"worker_name,omitempty"`
}

// DynamicTaskData is the payload for a TaskDynamic envelope.
type DynamicTaskData struct {
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
	WorkerName string    `json:"worker_name,omitempty"`
}

// CampaignTaskData is the payload for a TaskCampaign envelope.
type CampaignTaskData struct {
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Recipient  string    `json:"recipient"`
	ReceivedAt time.Time `json:"received_at"`
	WorkerName string    `json:"worker_name"`
}

// MonitoringTaskData is the payload for a TaskMonitoring envelope.
type MonitoringTaskData struct {
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Recipient  string    `json:"recipient"`
	ReceivedAt time.Time `json:"received_at"`
	WorkerName string    `json:"worker_name,omitempty"`
}
