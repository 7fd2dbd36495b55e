package authn

import "github.com/Abraxas-365/manifesto/pkg/errx"

var ErrRegistry = errx.NewRegistry("AUTHN")

var (
	ErrMissingToken = ErrRegistry.Register("MISSING_TOKEN", errx.TypeAuthorization, 401, "Missing access token")
	ErrInvalidToken = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, 401, "Invalid or expired access token")
)
