package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/ZILLABB/cryptonested-sub001/pkg/errors"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
)

// ErrorHandler is the Fiber error handler converting errors to the standard
// envelope. AppErrors keep their code and status; everything else collapses
// to a generic internal error so stray error text never leaks to clients.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		details := make([]string, 0)
		if appErr.Details != nil {
			switch d := appErr.Details.(type) {
			case string:
				details = append(details, d)
			case []string:
				details = d
			}
		}

		if appErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		}

		return c.Status(appErr.HTTPStatus).JSON(Response{
			Error: &ErrorBody{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: details,
			},
			Meta: buildMeta(c),
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(Response{
			Error: &ErrorBody{
				Code:    httpStatusToErrorCode(fiberErr.Code),
				Message: fiberErr.Message,
			},
			Meta: buildMeta(c),
		})
	}

	logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled request error")
	return c.Status(fiber.StatusInternalServerError).JSON(Response{
		Error: &ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred",
		},
		Meta: buildMeta(c),
	})
}

func httpStatusToErrorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
