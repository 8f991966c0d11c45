package domain

import "time"

// AnalysisStatus is the closed set of merchant/worker analysis states.
type AnalysisStatus string

const (
	StatusPending AnalysisStatus = "pending"
	StatusActive  AnalysisStatus = "active"
	StatusIgnored AnalysisStatus = "ignored"
)

// GlobalWorker is the reserved worker-scope wildcard meaning "applies
// regardless of worker".
const GlobalWorker = "global"

// Merchant is the sender entity identified by a message's root registrable
// domain. Counters are eventually-consistent denormalizations maintained by
// the campaign-analytics package, never the source of truth.
type Merchant struct {
	ID             string         `json:"id" db:"id"`
	Domain         string         `json:"domain" db:"domain"`
	DisplayName    *string        `json:"display_name,omitempty" db:"display_name"`
	Note           *string        `json:"note,omitempty" db:"note"`
	AnalysisStatus AnalysisStatus `json:"analysis_status" db:"analysis_status"`
	TotalCampaigns int64          `json:"total_campaigns" db:"total_campaigns"`
	TotalEmails    int64          `json:"total_emails" db:"total_emails"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// MerchantWorkerStatus overrides a merchant's analysis status for a single
// worker. A lookup for worker_name="global" falls through to Merchant's own
// AnalysisStatus column.
type MerchantWorkerStatus struct {
	MerchantID     string         `json:"merchant_id" db:"merchant_id"`
	WorkerName     string         `json:"worker_name" db:"worker_name"`
	AnalysisStatus AnalysisStatus `json:"analysis_status" db:"analysis_status"`
	DisplayName    *string        `json:"display_name,omitempty" db:"display_name"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// CampaignTag enumerates the closed tag set; IsValuable derives from it.
type CampaignTag int

const (
	TagNone CampaignTag = iota
	TagHighValue
	TagImportantMarketing
	TagRoutine
	TagLowPriority
)

// Campaign is a (merchant, subject) pair; every email with an identical
// subject from one merchant shares one campaign.
type Campaign struct {
	ID               string      `json:"id" db:"id"`
	MerchantID       string      `json:"merchant_id" db:"merchant_id"`
	Subject          string      `json:"subject" db:"subject"`
	SubjectHash      string      `json:"subject_hash" db:"subject_hash"` // hex sha-256
	Tag              CampaignTag `json:"tag" db:"tag"`
	IsRoot           bool        `json:"is_root" db:"is_root"`
	IsRootCandidate  bool        `json:"is_root_candidate" db:"is_root_candidate"`
	TotalEmails      int64       `json:"total_emails" db:"total_emails"`
	UniqueRecipients int64       `json:"unique_recipients" db:"unique_recipients"`
	FirstSeenAt      time.Time   `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt       time.Time   `json:"last_seen_at" db:"last_seen_at"`
}

// IsValuable reports whether the campaign carries a high-value/important
// marketing tag (tag ∈ {1,2}).
func (c Campaign) IsValuable() bool {
	return c.Tag == TagHighValue || c.Tag == TagImportantMarketing
}

// CampaignEmail is an append-only record of one email delivered under a
// campaign; bulk-deletable by cleanup, never updated in place.
type CampaignEmail struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Recipient  string    `json:"recipient" db:"recipient"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
	WorkerName string    `json:"worker_name" db:"worker_name"`
}

// RecipientPath is one entry in the ordered sequence of distinct campaigns
// a recipient received from one merchant.
type RecipientPath struct {
	MerchantID        string    `json:"merchant_id" db:"merchant_id"`
	Recipient         string    `json:"recipient" db:"recipient"`
	CampaignID        string    `json:"campaign_id" db:"campaign_id"`
	SequenceOrder     int       `json:"sequence_order" db:"sequence_order"`
	FirstReceivedAt   time.Time `json:"first_received_at" db:"first_received_at"`
	IsNewUser         bool      `json:"is_new_user" db:"is_new_user"`
	FirstRootCampaign *string   `json:"first_root_campaign_id,omitempty" db:"first_root_campaign_id"`
}

// AnalysisProject is a label-only view over existing merchant/worker data.
type AnalysisProject struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	MerchantID  string    `json:"merchant_id" db:"merchant_id"`
	WorkerNames []string  `json:"worker_names" db:"-"`
	Status      string    `json:"status" db:"status"` // active|archived
	Note        *string   `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SubjectStats is a per (subject-hash, merchant-domain, worker) counter row.
type SubjectStats struct {
	ID             string    `json:"id" db:"id"`
	Subject        string    `json:"subject" db:"subject"`
	SubjectHash    uint64    `json:"subject_hash" db:"subject_hash"`
	MerchantDomain string    `json:"merchant_domain" db:"merchant_domain"`
	WorkerName     string    `json:"worker_name" db:"worker_name"`
	EmailCount     int64     `json:"email_count" db:"email_count"`
	IsFocused      bool      `json:"is_focused" db:"is_focused"`
	FirstSeenAt    time.Time `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
