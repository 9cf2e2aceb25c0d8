// Package handlers adapts HTTP requests onto the services. Handlers return
// errors and leave status mapping to the server's error handler.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
)

var errBadBody = apperr.New(apperr.ErrInvalidInput, "Invalid request body.")

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (o CookieOptions) set(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     o.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(o.MaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   o.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (o CookieOptions) clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   o.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errBadBody
	}
	return nil
}
