// Package mailer holds the pieces between a queued record and the mail
// provider: credential management, wire-format rendering and the send call.
package mailer

import (
	"context"
	"fmt"
)

// Identity is the sender identity stamped on outgoing mail.
type Identity struct {
	Email     string
	Name      string
	Signature string
}

// Address renders the identity as an RFC 5322 From value.
func (i Identity) Address() string {
	if i.Name == "" {
		return i.Email
	}
	return fmt.Sprintf("%q <%s>", i.Name, i.Email)
}

// Receipt is the provider's acknowledgement of a delivered message.
type Receipt struct {
	MessageID string
	ThreadID  string
}

// TokenSource yields a usable provider access credential.
type TokenSource interface {
	// AccessToken returns the cached credential, refreshing it first when
	// its expiry is inside the safety margin.
	AccessToken(ctx context.Context) (string, error)

	// ForceRefresh exchanges the refresh credential unconditionally.
	ForceRefresh(ctx context.Context) (string, error)
}

// Transport performs one provider send call. No internal retry: the retry
// policy belongs to the caller, and here the caller chooses not to retry.
type Transport interface {
	Send(ctx context.Context, raw string, accessToken string) (Receipt, error)
}
