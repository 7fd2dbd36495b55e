package gmailx

import "github.com/Abraxas-365/manifesto/pkg/errx"

var gmailErrors = errx.NewRegistry("GMAILX")

var (
	ErrClientInit   = gmailErrors.Register("CLIENT_INIT", errx.TypeInternal, 500, "Failed to initialize Gmail client")
	ErrSendRejected = gmailErrors.Register("SEND_REJECTED", errx.TypeExternal, 502, "Gmail rejected the message")
)
