package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/auth"
)

// IdentityResolver turns verified claims into the stored account.
type IdentityResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (auth.Identity, error)
}

// AuthenticatedHandler receives the verified requester with the request.
type AuthenticatedHandler func(c *fiber.Ctx, id auth.Identity) error

type Authenticator struct {
	sessions   *auth.SessionManager
	resolver   IdentityResolver
	cookieName string
}

func NewAuthenticator(sessions *auth.SessionManager, resolver IdentityResolver, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = "authToken"
	}
	return &Authenticator{sessions: sessions, resolver: resolver, cookieName: cookieName}
}

func (a *Authenticator) CookieName() string { return a.cookieName }

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// verify checks the cookie first. A cookie that fails verification does not
// shadow a bearer header sent alongside it.
func (a *Authenticator) verify(c *fiber.Ctx) (*auth.Claims, error) {
	cookie, header := c.Cookies(a.cookieName), bearer(c)
	if cookie == "" {
		return a.sessions.Verify(c.UserContext(), header)
	}
	claims, err := a.sessions.Verify(c.UserContext(), cookie)
	if err != nil && header != "" && header != cookie {
		return a.sessions.Verify(c.UserContext(), header)
	}
	return claims, err
}

// Wrap verifies the session before calling next. Missing tokens yield 401,
// invalid, expired or revoked ones 403.
func (a *Authenticator) Wrap(next AuthenticatedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := a.verify(c)
		if err != nil {
			return err
		}
		id, err := a.resolver.Resolve(c.UserContext(), claims)
		if err != nil {
			return err
		}
		c.Locals("userUid", id.UserUID)
		return next(c, id)
	}
}
