package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
	"github.com/pranjalb21/kaviosPix/internal/config"
	"github.com/pranjalb21/kaviosPix/internal/metrics"
	"github.com/pranjalb21/kaviosPix/internal/middleware"
	"github.com/pranjalb21/kaviosPix/internal/routes"
	"github.com/pranjalb21/kaviosPix/internal/utils"
	"go.uber.org/zap"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	Config    *config.Config
	Handlers  routes.Handlers
	Auth      *middleware.Authenticator
	AuthLimit middleware.Limiter
	Metrics   *metrics.Metrics
	Ready     map[string]ReadyCheck
	Logger    *zap.Logger
}

// New initializes the Fiber application with middlewares and routes.
func New(o Options) *fiber.App {
	cfg := o.Config
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BodyLimit:    cfg.App.BodyLimitMB << 20,
		ErrorHandler: ErrorHandler(o.Logger),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Development()}))
	app.Use(requestid.New())
	app.Use(corsMiddleware(cfg.App.CORSOrigins))
	app.Use(middleware.RequestLogger(o.Logger))
	if o.Metrics != nil {
		app.Use(middleware.Metrics(o.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(o.Metrics.Handler()))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/readyz", readyHandler(o.Ready))

	routes.Setup(app, o.Handlers, o.Auth, o.AuthLimit)
	return app
}

func corsMiddleware(origins string) fiber.Handler {
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: origins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
	})
}

// ErrorHandler is the single place errors become HTTP responses. Only the
// public message is sent; causes are logged.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			return utils.JSONErrors(c, fiber.StatusBadRequest, ve.Messages)
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code >= fiber.StatusInternalServerError {
				logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
			}
			return utils.JSONError(c, fe.Code, fe.Message)
		}

		status := apperr.Status(err)
		if status >= fiber.StatusInternalServerError ||
			errors.Is(err, apperr.ErrUploadFailed) || errors.Is(err, apperr.ErrPersistFailed) {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err))
		}
		return utils.JSONError(c, status, apperr.PublicMessage(err))
	}
}

func readyHandler(checks map[string]ReadyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = fiber.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		return c.Status(status).JSON(fiber.Map{"checks": result})
	}
}
