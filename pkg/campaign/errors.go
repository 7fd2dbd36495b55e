package campaign

import (
	"net/http"

	"github.com/Abraxas-365/manifesto/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("CAMPAIGN")

var (
	CodeNotFound           = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Campaign not found")
	CodeRecordNotFound     = ErrRegistry.Register("RECORD_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Queue record not found")
	CodeNotStartable       = ErrRegistry.Register("NOT_STARTABLE", errx.TypeBusiness, http.StatusConflict, "Campaign cannot be started from its current status")
	CodeNotRunning         = ErrRegistry.Register("NOT_RUNNING", errx.TypeBusiness, http.StatusConflict, "Campaign is not currently sending")
	CodeDeleteWhileSending = ErrRegistry.Register("DELETE_WHILE_SENDING", errx.TypeBusiness, http.StatusConflict, "Campaign cannot be deleted while sending")
	CodeEmptyQueue         = ErrRegistry.Register("EMPTY_QUEUE", errx.TypeValidation, http.StatusBadRequest, "Campaign has no valid recipients")
)

func ErrCampaignNotFound() *errx.Error   { return ErrRegistry.New(CodeNotFound) }
func ErrRecordNotFound() *errx.Error     { return ErrRegistry.New(CodeRecordNotFound) }
func ErrNotStartable() *errx.Error       { return ErrRegistry.New(CodeNotStartable) }
func ErrNotRunning() *errx.Error         { return ErrRegistry.New(CodeNotRunning) }
func ErrDeleteWhileSending() *errx.Error { return ErrRegistry.New(CodeDeleteWhileSending) }
func ErrEmptyQueue() *errx.Error         { return ErrRegistry.New(CodeEmptyQueue) }
