package contactapi

import (
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/gofiber/fiber/v2"

	"github.com/digpatho/crm-backend/pkg/authn"
	"github.com/digpatho/crm-backend/pkg/contact"
	"github.com/digpatho/crm-backend/pkg/contact/contactsrv"
)

// Handlers exposes the contact HTTP surface.
type Handlers struct {
	service *contactsrv.Service
}

// NewHandlers creates the contact handlers.
func NewHandlers(service *contactsrv.Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the contact routes behind the auth middleware.
func (h *Handlers) RegisterRoutes(app *fiber.App, auth fiber.Handler) {
	g := app.Group("/api/v1/contacts", auth)

	g.Post("/", h.create)
	g.Get("/", h.list)
	g.Get("/:id", h.get)
	g.Put("/:id", h.update)
	g.Delete("/:id", h.delete)
	g.Get("/:id/interactions", h.timeline)
	g.Post("/:id/interactions", h.addInteraction)
}

func (h *Handlers) create(c *fiber.Ctx) error {
	var in contact.Contact
	if err := c.BodyParser(&in); err != nil {
		return errx.Wrap(err, "invalid contact payload", errx.TypeValidation)
	}
	created, err := h.service.Create(c.Context(), &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handlers) list(c *fiber.Ctx) error {
	page, err := h.service.List(c.Context(), c.Query("q"), kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handlers) get(c *fiber.Ctx) error {
	found, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(found)
}

func (h *Handlers) update(c *fiber.Ctx) error {
	var in contact.Contact
	if err := c.BodyParser(&in); err != nil {
		return errx.Wrap(err, "invalid contact payload", errx.TypeValidation)
	}
	in.ID = c.Params("id")
	updated, err := h.service.Update(c.Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *Handlers) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) timeline(c *fiber.Ctx) error {
	page, err := h.service.Timeline(c.Context(), c.Params("id"), kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handlers) addInteraction(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	var in contact.Interaction
	if err := c.BodyParser(&in); err != nil {
		return errx.Wrap(err, "invalid interaction payload", errx.TypeValidation)
	}
	in.ContactID = c.Params("id")
	in.CreatedBy = principal.UserID

	created, err := h.service.AddInteraction(c.Context(), &in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
