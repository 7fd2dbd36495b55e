package mailer

import "github.com/Abraxas-365/manifesto/pkg/errx"

var mailerErrors = errx.NewRegistry("MAILER")

var (
	// ErrAuthExpired is fatal to a dispatch run: the stored credential can no
	// longer be exchanged and must be re-established out of band.
	ErrAuthExpired = mailerErrors.Register("AUTH_EXPIRED", errx.TypeAuthorization, 401, "Google session expired, reconnect Gmail")

	// ErrBuildFailed marks a record that could not be rendered into the
	// provider wire format. Per-record, never fatal to the batch.
	ErrBuildFailed = mailerErrors.Register("BUILD_FAILED", errx.TypeValidation, 422, "Failed to build outgoing message")
)

// IsAuthExpired reports whether err is the fatal credential failure.
func IsAuthExpired(err error) bool {
	var e *errx.Error
	return errx.As(err, &e) && e.Code == ErrAuthExpired.Code
}
