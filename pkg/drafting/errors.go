package drafting

import (
	"net/http"

	"github.com/Abraxas-365/manifesto/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("DRAFTING")

var (
	CodeDraftNotFound   = ErrRegistry.Register("DRAFT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Email draft not found")
	CodeGenerationError = ErrRegistry.Register("GENERATION_ERROR", errx.TypeExternal, http.StatusBadGateway, "Email generation failed")
	CodeEmptyResponse   = ErrRegistry.Register("EMPTY_RESPONSE", errx.TypeExternal, http.StatusBadGateway, "Model returned an empty draft")
)

func ErrDraftNotFound() *errx.Error { return ErrRegistry.New(CodeDraftNotFound) }
func ErrEmptyResponse() *errx.Error { return ErrRegistry.New(CodeEmptyResponse) }
