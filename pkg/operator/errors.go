package operator

import "github.com/Abraxas-365/manifesto/pkg/errx"

var operatorErrors = errx.NewRegistry("OPERATOR")

var (
	errProfileNotFound = operatorErrors.Register("PROFILE_NOT_FOUND", errx.TypeNotFound, 404, "Operator profile not found")
	errGrantExchange   = operatorErrors.Register("GRANT_EXCHANGE", errx.TypeExternal, 502, "Failed to exchange Google authorization code")
)

// ErrProfileNotFound indicates the operator has no stored profile.
func ErrProfileNotFound() *errx.Error { return operatorErrors.New(errProfileNotFound) }

// ErrGrantExchange indicates the OAuth authorization-code exchange failed.
func ErrGrantExchange() *errx.Error { return operatorErrors.New(errGrantExchange) }
