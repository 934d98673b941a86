package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ErrorHandlerMiddleware recovers from panics and normalizes fiber errors
// into the standard envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return recover.New()
}

// ErrorHandler is the app-level fiber error handler.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
}
