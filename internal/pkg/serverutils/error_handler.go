package serverutils

import (
	"errors"

	"drug-agentic-be/internal/pkg/logger"
	"drug-agentic-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
)

// NewErrorHandler maps errors escaping the handlers to one well-formed
// JSON response. Workflow stage errors carry their stage name so clients
// can tell a retrieval outage from a bad request.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		var stageErr *workflow.StageError

		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		case errors.Is(err, workflow.ErrEmptyQuery):
			code = fiber.StatusBadRequest
			message = "Query must not be empty"
		case errors.As(err, &stageErr):
			if errors.Is(stageErr.Err, workflow.ErrAllSourcesFailed) {
				code = fiber.StatusServiceUnavailable
			}
			message = "Workflow failed at stage " + stageErr.Stage.String()
		}

		log.Error("http", "request failed", map[string]interface{}{
			"path":   ctx.Path(),
			"status": code,
			"error":  err.Error(),
		})

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
