package operator

import "time"

// Profile is the authenticated operator's stored profile, including the
// Google credential state shared by every campaign that operator runs.
type Profile struct {
	ID             string `db:"id" json:"id"`
	Email          string `db:"email" json:"email"`
	FullName       string `db:"full_name" json:"full_name"`
	EmailSignature string `db:"email_signature" json:"email_signature"`

	GoogleAccessToken    string     `db:"google_access_token" json:"-"`
	GoogleRefreshToken   string     `db:"google_refresh_token" json:"-"`
	GoogleTokenExpiresAt *time.Time `db:"google_token_expires_at" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GmailConnected reports whether the operator has granted Gmail access.
func (p *Profile) GmailConnected() bool {
	return p.GoogleAccessToken != "" || p.GoogleRefreshToken != ""
}

// GmailStatus is the connection summary exposed to the UI.
type GmailStatus struct {
	Connected bool       `json:"connected"`
	Expired   bool       `json:"expired"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Status derives the Gmail connection summary from the stored token state.
func (p *Profile) Status(now time.Time) GmailStatus {
	s := GmailStatus{Connected: p.GmailConnected(), ExpiresAt: p.GoogleTokenExpiresAt}
	if p.GoogleTokenExpiresAt != nil {
		s.Expired = now.After(*p.GoogleTokenExpiresAt)
	}
	return s
}
