package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/servcore/helpdesk/internal/config"
	"github.com/servcore/helpdesk/internal/observability"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

// ErrorHandler maps DomainError to its HTTP status and a stable JSON error
// envelope. Anything else is a 500 with the cause kept out of the response.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    apperrors.CodeInternal,
					"message": fiberErr.Message,
				},
			})
		}

		domainErr := apperrors.ToDomainError(err)
		if domainErr.HTTPStatus >= 500 {
			logger.Error("request failed",
				zap.String("request_id", observability.RequestID(c)),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		body := fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
	}
}

// RegisterMiddlewares wires recovery, request logging and the per-request
// timeout onto the app.
func RegisterMiddlewares(app *fiber.App, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) {
	app.Use(recover.New())
	app.Use(observability.RequestLogger(logger, metrics))

	if timeout := cfg.App.RequestTimeout(); timeout > 0 {
		app.Use(func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
			defer cancel()
			c.SetUserContext(ctx)
			return c.Next()
		})
	}
}
