// Package gmailx is the Gmail provider for mailer.Transport.
package gmailx

import (
	"context"
	"errors"

	"github.com/digpatho/crm-backend/pkg/mailer"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Transport sends raw messages through the Gmail API. One network call per
// send, no internal retry; a non-2xx response is total failure for the
// message, attachment parts included.
type Transport struct {
	opts []option.ClientOption
}

// NewTransport creates the Gmail transport. Extra client options are mainly
// for tests (endpoint override).
func NewTransport(opts ...option.ClientOption) *Transport {
	return &Transport{opts: opts}
}

// Send posts the prebuilt raw message under the given access credential and
// returns the provider's message and thread identifiers.
func (t *Transport) Send(ctx context.Context, raw string, accessToken string) (mailer.Receipt, error) {
	clientOpts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, t.opts...)

	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return mailer.Receipt{}, gmailErrors.NewWithCause(ErrClientInit, err)
	}

	res, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return mailer.Receipt{}, gmailErrors.NewWithMessage(ErrSendRejected, gerr.Message).
				WithDetail("status", gerr.Code)
		}
		return mailer.Receipt{}, gmailErrors.NewWithCause(ErrSendRejected, err)
	}

	return mailer.Receipt{MessageID: res.Id, ThreadID: res.ThreadId}, nil
}
