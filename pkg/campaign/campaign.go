// Package campaign is the bulk email campaign context: the durable send
// queue, the sequential dispatcher and the run supervisor.
package campaign

import (
	"time"

	"github.com/lib/pq"
)

// Status is the campaign lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReady     Status = "ready"
	StatusSending   Status = "sending"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Startable reports whether a dispatch run may begin from this state.
func (s Status) Startable() bool {
	return s == StatusDraft || s == StatusReady || s == StatusPaused
}

// RecordStatus is the per-record delivery state. Transitions are monotone:
// pending → sending → {sent | failed}; a record is never revisited.
type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordSending RecordStatus = "sending"
	RecordSent    RecordStatus = "sent"
	RecordFailed  RecordStatus = "failed"
	RecordSkipped RecordStatus = "skipped"
)

// Campaign is one named batch of queued sends.
type Campaign struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Status Status `db:"status" json:"status"`

	TotalCount  int `db:"total_count" json:"total_count"`
	SentCount   int `db:"sent_count" json:"sent_count"`
	FailedCount int `db:"failed_count" json:"failed_count"`

	AttachmentPath string `db:"attachment_path" json:"attachment_path,omitempty"`
	AttachmentName string `db:"attachment_name" json:"attachment_name,omitempty"`

	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// HasAttachment reports whether the campaign carries a stored attachment.
func (c *Campaign) HasAttachment() bool {
	return c.AttachmentPath != ""
}

// QueueRecord is one addressed, fully rendered email awaiting delivery.
type QueueRecord struct {
	ID         string  `db:"id" json:"id"`
	CampaignID string  `db:"campaign_id" json:"campaign_id"`
	ContactID  *string `db:"contact_id" json:"contact_id,omitempty"`

	ToEmail string         `db:"to_email" json:"to_email"`
	ToName  string         `db:"to_name" json:"to_name,omitempty"`
	CC      pq.StringArray `db:"cc_emails" json:"cc_emails,omitempty"`
	Subject string         `db:"subject" json:"subject"`
	Body    string         `db:"body" json:"body"`

	Status       RecordStatus `db:"status" json:"status"`
	ErrorMessage string       `db:"error_message" json:"error_message,omitempty"`
	SentAt       *time.Time   `db:"sent_at" json:"sent_at,omitempty"`
	GmailID      string       `db:"gmail_id" json:"gmail_id,omitempty"`
	ThreadID     string       `db:"thread_id" json:"thread_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Progress is the live aggregate view of a campaign, always recomputed from
// the queue store so a reload mid-run reflects true state.
type Progress struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// Signal is a cooperative control flag observed at loop checkpoints.
type Signal int

const (
	SignalNone Signal = iota
	SignalPause
	SignalCancel
)
