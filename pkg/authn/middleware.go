package authn

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Principal identifies the authenticated operator for the current request.
type Principal struct {
	UserID string
	Email  string
	Name   string
}

const localsKey = "authn.principal"

// Middleware validates bearer tokens minted by the identity provider.
type Middleware struct {
	secret []byte
}

// NewMiddleware crea el middleware de autenticación con el secreto HS256 compartido.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

// Authenticate extracts the token from the Authorization header or the
// access_token cookie and stores the Principal in fiber locals.
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
				token = parts[1]
			}
		}
		if token == "" {
			token = c.Cookies("access_token")
		}
		if token == "" {
			return ErrRegistry.New(ErrMissingToken)
		}

		principal, err := m.parse(token)
		if err != nil {
			return err
		}

		c.Locals(localsKey, principal)
		return c.Next()
	}
}

func (m *Middleware) parse(token string) (*Principal, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrRegistry.New(ErrInvalidToken).WithDetail("alg", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrRegistry.NewWithCause(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrRegistry.New(ErrInvalidToken)
	}

	p := &Principal{}
	if sub, err := claims.GetSubject(); err == nil {
		p.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		p.Name = name
	}
	if p.UserID == "" {
		return nil, ErrRegistry.New(ErrInvalidToken).WithDetail("reason", "missing subject claim")
	}
	return p, nil
}

// PrincipalFrom returns the Principal stored by Authenticate, or nil.
func PrincipalFrom(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(localsKey).(*Principal)
	return p
}
