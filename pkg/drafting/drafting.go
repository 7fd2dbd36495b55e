// Package drafting is the AI email drafting context: it turns a contact's
// profile and history into a personalized draft through a language model.
package drafting

import "time"

// Draft statuses.
const (
	StatusGenerated = "generated"
	StatusEdited    = "edited"
	StatusSent      = "sent"
)

// Draft is one generated email, optionally edited before sending.
type Draft struct {
	ID         string  `db:"id" json:"id"`
	ContactID  string  `db:"contact_id" json:"contact_id"`
	Subject    string  `db:"subject" json:"subject"`
	Body       string  `db:"body" json:"body"`
	EditedBody *string `db:"edited_body" json:"edited_body,omitempty"`
	Notes      string  `db:"notes" json:"notes,omitempty"`
	Status     string  `db:"status" json:"status"`
	AIModel    string  `db:"ai_model" json:"ai_model,omitempty"`

	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	SentBy    *string    `db:"sent_by" json:"sent_by,omitempty"`
	EditedAt  *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// EffectiveBody returns the edited body when present, otherwise the
// generated one.
func (d *Draft) EffectiveBody() string {
	if d.EditedBody != nil && *d.EditedBody != "" {
		return *d.EditedBody
	}
	return d.Body
}

// GenerateRequest selects what to generate and how.
type GenerateRequest struct {
	ContactID     string `json:"contact_id"`
	EmailType     string `json:"email_type"`
	Tone          string `json:"tone"`
	Language      string `json:"language"`
	Project       string `json:"project"`
	CustomContext string `json:"custom_context,omitempty"`
}
