package server

import (
	"errors"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// currentUserID returns the authenticated user ID set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	return c.Locals("userID").(uint)
}

// viewerID returns the user ID set by AuthOptional, or zero for anonymous
// requests.
func viewerID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// errInvalidBody wraps a body-parse failure as a validation error.
func errInvalidBody(err error) error {
	return &models.AppError{
		Code:    models.CodeValidation,
		Message: "Invalid request body",
		Err:     err,
	}
}

// httpStatus maps engine error codes to HTTP status codes.
func httpStatus(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeInvalidState:
		return fiber.StatusUnprocessableEntity
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeStorageUnavailable:
		return fiber.StatusServiceUnavailable
	case models.CodeUnauthorized:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the JSON error response with the mapped status.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, httpStatus(err), err)
}
