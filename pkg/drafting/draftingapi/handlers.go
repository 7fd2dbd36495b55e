package draftingapi

import (
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/gofiber/fiber/v2"

	"github.com/digpatho/crm-backend/pkg/authn"
	"github.com/digpatho/crm-backend/pkg/drafting"
	"github.com/digpatho/crm-backend/pkg/drafting/draftingsrv"
)

// Handlers exposes the draft generation HTTP surface.
type Handlers struct {
	service *draftingsrv.Service
}

// NewHandlers creates the drafting handlers.
func NewHandlers(service *draftingsrv.Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the drafting routes behind the auth middleware.
func (h *Handlers) RegisterRoutes(app *fiber.App, auth fiber.Handler) {
	g := app.Group("/api/v1/drafts", auth)

	g.Post("/generate", h.generate)
	g.Get("/:id", h.get)
	g.Put("/:id/body", h.edit)
	g.Post("/:id/sent", h.markSent)
	g.Delete("/:id", h.delete)

	app.Get("/api/v1/contacts/:id/drafts", auth, h.listByContact)
}

func (h *Handlers) generate(c *fiber.Ctx) error {
	var req drafting.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Wrap(err, "invalid generation payload", errx.TypeValidation)
	}
	if req.ContactID == "" {
		return errx.Validation("contact_id is required")
	}

	draft, err := h.service.Generate(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(draft)
}

func (h *Handlers) get(c *fiber.Ctx) error {
	draft, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(draft)
}

func (h *Handlers) listByContact(c *fiber.Ctx) error {
	page, err := h.service.ListByContact(c.Context(), c.Params("id"), kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handlers) edit(c *fiber.Ctx) error {
	var in struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&in); err != nil {
		return errx.Wrap(err, "invalid edit payload", errx.TypeValidation)
	}
	draft, err := h.service.Edit(c.Context(), c.Params("id"), in.Body)
	if err != nil {
		return err
	}
	return c.JSON(draft)
}

func (h *Handlers) markSent(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}
	if err := h.service.MarkSent(c.Context(), c.Params("id"), principal.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": drafting.StatusSent})
}

func (h *Handlers) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
