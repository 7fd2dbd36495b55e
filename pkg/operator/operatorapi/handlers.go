package operatorapi

import (
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/digpatho/crm-backend/pkg/authn"
	"github.com/digpatho/crm-backend/pkg/operator"
)

// gmailSendScope is the only Gmail permission the dispatcher needs.
const gmailSendScope = "https://www.googleapis.com/auth/gmail.send"

// Handlers exposes the operator profile and the Gmail connect flow.
type Handlers struct {
	profiles operator.ProfileRepository
	oauth    *oauth2.Config
}

// NewHandlers creates the operator handlers.
func NewHandlers(profiles operator.ProfileRepository, clientID, clientSecret, redirectURL string) *Handlers {
	return &Handlers{
		profiles: profiles,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{gmailSendScope},
			Endpoint:     google.Endpoint,
		},
	}
}

// RegisterRoutes mounts the profile routes behind the auth middleware.
func (h *Handlers) RegisterRoutes(app *fiber.App, auth fiber.Handler) {
	g := app.Group("/api/v1/profile", auth)

	g.Get("/", h.get)
	g.Put("/", h.update)
	g.Get("/gmail/status", h.gmailStatus)
	g.Get("/gmail/connect", h.gmailConnect)
	g.Get("/gmail/callback", h.gmailCallback)
	g.Post("/gmail/disconnect", h.gmailDisconnect)
}

func (h *Handlers) get(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	prof, err := h.profiles.Get(c.Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(prof)
}

func (h *Handlers) update(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	var in struct {
		FullName       string `json:"full_name"`
		EmailSignature string `json:"email_signature"`
	}
	if err := c.BodyParser(&in); err != nil {
		return errx.Wrap(err, "invalid profile payload", errx.TypeValidation)
	}

	prof, err := h.profiles.Get(c.Context(), principal.UserID)
	if err != nil {
		return err
	}
	prof.FullName = in.FullName
	prof.EmailSignature = in.EmailSignature
	prof.UpdatedAt = time.Now().UTC()

	if err := h.profiles.Update(c.Context(), prof); err != nil {
		return err
	}
	return c.JSON(prof)
}

func (h *Handlers) gmailStatus(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	prof, err := h.profiles.Get(c.Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"connected": prof.GmailConnected(),
		"status":    prof.Status(time.Now().UTC()),
		"email":     prof.Email,
	})
}

// gmailConnect hands the client the provider consent URL. The offline access
// type is what yields a refresh token; prompt=consent forces Google to issue
// one even on re-authorization.
func (h *Handlers) gmailConnect(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	url := h.oauth.AuthCodeURL(principal.UserID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return c.JSON(fiber.Map{"auth_url": url})
}

func (h *Handlers) gmailCallback(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	code := c.Query("code")
	if code == "" {
		return errx.Validation("missing authorization code")
	}

	token, err := h.oauth.Exchange(c.Context(), code)
	if err != nil {
		return operator.ErrGrantExchange().WithDetail("cause", err.Error())
	}

	expiresAt := token.Expiry.UTC()
	if err := h.profiles.SaveGoogleGrant(c.Context(), principal.UserID, token.AccessToken, token.RefreshToken, expiresAt); err != nil {
		return err
	}

	logx.WithFields(logx.Fields{"operator_id": principal.UserID}).Info("gmail account connected")
	return c.JSON(fiber.Map{"connected": true})
}

func (h *Handlers) gmailDisconnect(c *fiber.Ctx) error {
	principal := authn.PrincipalFrom(c)
	if principal == nil {
		return authn.ErrRegistry.New(authn.ErrMissingToken)
	}

	if err := h.profiles.SaveGoogleGrant(c.Context(), principal.UserID, "", "", time.Time{}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"connected": false})
}
