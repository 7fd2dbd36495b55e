// Package contact is the contacts context: people reached by campaigns and
// the interaction timeline recorded against them.
package contact

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Contact is one person in the CRM.
type Contact struct {
	ID            string         `db:"id" json:"id"`
	FirstName     string         `db:"first_name" json:"first_name"`
	LastName      string         `db:"last_name" json:"last_name"`
	Email         string         `db:"email" json:"email"`
	Phone         string         `db:"phone" json:"phone,omitempty"`
	JobTitle      string         `db:"job_title" json:"job_title,omitempty"`
	Role          string         `db:"role" json:"role,omitempty"`
	InterestLevel string         `db:"interest_level" json:"interest_level,omitempty"`
	InstitutionID *string        `db:"institution_id" json:"institution_id,omitempty"`
	LinkedinURL   string         `db:"linkedin_url" json:"linkedin_url,omitempty"`
	AIContext     string         `db:"ai_context" json:"ai_context,omitempty"`
	Tags          pq.StringArray `db:"tags" json:"tags,omitempty"`
	Source        string         `db:"source" json:"source,omitempty"`

	InteractionCount  int        `db:"interaction_count" json:"interaction_count"`
	LastInteractionAt *time.Time `db:"last_interaction_at" json:"last_interaction_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name, tolerating either being empty.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Interaction directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionInternal = "internal"
)

// Interaction types used by the mail flow. Manual notes use free-form types.
const (
	TypeEmailSent     = "email_sent"
	TypeEmailReply    = "email_reply"
	TypeEmailReceived = "email_received"
	TypeNote          = "note"
)

// Interaction is one timeline entry on a contact.
type Interaction struct {
	ID           string    `db:"id" json:"id"`
	ContactID    string    `db:"contact_id" json:"contact_id"`
	Type         string    `db:"type" json:"type"`
	Subject      string    `db:"subject" json:"subject,omitempty"`
	Content      string    `db:"content" json:"content,omitempty"`
	Direction    string    `db:"direction" json:"direction"`
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
	EmailDraftID *string   `db:"email_draft_id" json:"email_draft_id,omitempty"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	ThreadID     string    `db:"thread_id" json:"thread_id,omitempty"`
	GmailID      string    `db:"gmail_id" json:"gmail_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsEmail reports whether the interaction came from the mail flow.
func (i *Interaction) IsEmail() bool {
	switch i.Type {
	case TypeEmailSent, TypeEmailReply, TypeEmailReceived:
		return true
	}
	return false
}
