package campaignapi

import (
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/gofiber/fiber/v2"

	"github.com/digpatho/crm-backend/pkg/authn"
	"github.com/digpatho/crm-backend/pkg/campaign/campaignsrv"
)

// Handlers exposes the campaign HTTP surface.
type Handlers struct {
	service    *campaignsrv.Service
	supervisor *campaignsrv.Supervisor
}

// NewHandlers creates the campaign handlers.
func NewHandlers(service *campaignsrv.Service, supervisor *campaignsrv.Supervisor) *Handlers {
	return &Handlers{service: service, supervisor: supervisor}
}

// RegisterRoutes mounts the campaign routes behind the auth middleware.
func (h *Handlers) RegisterRoutes(app *fiber.App, auth fiber.Handler) {
	g := app.Group("/api/v1/campaigns", auth)

	g.Post("/", h.create)
	g.Get("/", h.list)
	g.Get("/:id", h.detail)
	g.Get("/:id/queue", h.queue)
	g.Get("/:id/progress", h.progress)
	g.Post("/:id/start", h.start)
	g.Post("/:id/pause", h.pause)
	g.Post("/:id/resume", h.resume)
	g.Post("/:id/cancel", h.cancel)
	g.Delete("/:id", h.delete)
}

func (h *Handlers) create(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	var in campaignsrv.CampaignImport
	if err := c.BodyParser(&in); err != nil {
		return errx.Wrap(err, "invalid campaign payload", errx.TypeValidation)
	}

	created, err := h.service.CreateFromImport(c.Context(), principal.UserID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handlers) list(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	page, err := h.service.List(c.Context(), principal.UserID, paginationFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handlers) detail(c *fiber.Ctx) error {
	detail, err := h.service.Detail(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

func (h *Handlers) queue(c *fiber.Ctx) error {
	page, err := h.service.Queue(c.Context(), c.Params("id"), paginationFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handlers) progress(c *fiber.Ctx) error {
	progress, err := h.supervisor.Progress(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(progress)
}

func (h *Handlers) start(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}
	if err := h.supervisor.Start(c.Context(), c.Params("id"), principal.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "sending"})
}

func (h *Handlers) pause(c *fiber.Ctx) error {
	if err := h.supervisor.Pause(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "pause_requested"})
}

func (h *Handlers) resume(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}
	if err := h.supervisor.Resume(c.Context(), c.Params("id"), principal.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "sending"})
}

func (h *Handlers) cancel(c *fiber.Ctx) error {
	if err := h.supervisor.Cancel(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "cancel_requested"})
}

func (h *Handlers) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func paginationFrom(c *fiber.Ctx) kernel.PaginationOptions {
	return kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
}
