package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/metrics"
)

// Metrics records request counts and latency by route pattern. Errors are
// rendered later by the error handler, so their status is derived here.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.ObserveRequest(c.Method(), c.Route().Path, StatusOf(c, err), time.Since(start))
		return err
	}
}

// StatusOf reports the status a request ends with.
func StatusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.Status(err)
}
