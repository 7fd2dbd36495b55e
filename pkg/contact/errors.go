package contact

import (
	"net/http"

	"github.com/Abraxas-365/manifesto/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("CONTACT")

var (
	CodeNotFound       = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Contact not found")
	CodeDuplicateEmail = ErrRegistry.Register("DUPLICATE_EMAIL", errx.TypeValidation, http.StatusConflict, "A contact with this email already exists")
	CodeInvalidContact = ErrRegistry.Register("INVALID_CONTACT", errx.TypeValidation, http.StatusBadRequest, "Contact is missing required fields")
)

func ErrContactNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }
func ErrDuplicateEmail() *errx.Error  { return ErrRegistry.New(CodeDuplicateEmail) }
func ErrInvalidContact() *errx.Error  { return ErrRegistry.New(CodeInvalidContact) }
