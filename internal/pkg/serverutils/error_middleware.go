package serverutils

import (
	"context"
	"errors"

	"support-chat-be/pkg/chat/chaterr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON
// envelopes with a status matching the chat error kind.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, res := mapError(err)
		return ctx.Status(code).JSON(res)
	}
}

func mapError(err error) (int, BaseResponse[any]) {
	var verr *chaterr.ValidationError
	if errors.As(err, &verr) {
		res := ErrorResponse(fiber.StatusBadRequest, "Validation failed")
		res.Errors = verr.Fields
		return fiber.StatusBadRequest, res
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, ErrorResponse(ferr.Code, ferr.Message)
	}

	code := fiber.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, chaterr.ErrValidationFailed):
		code, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, chaterr.ErrSessionNotFound):
		code, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, chaterr.ErrInvalidTransition), errors.Is(err, chaterr.ErrConversationClosed):
		code, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, chaterr.ErrStorageUnavailable):
		code, message = fiber.StatusServiceUnavailable, "Chat storage is unavailable, try again"
	case errors.Is(err, context.DeadlineExceeded):
		code, message = fiber.StatusGatewayTimeout, "Request timed out"
	}
	return code, ErrorResponse(code, message)
}
