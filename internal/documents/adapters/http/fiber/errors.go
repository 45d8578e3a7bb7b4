package fiber

import (
	"errors"
	"net/http"

	"visit-dashboard-service/internal/documents/core/usecase"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnknownCollection):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Error:   "unknown_collection",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrEmptyUpdate),
		errors.Is(err, usecase.ErrInvalidField),
		errors.Is(err, usecase.ErrFieldNotBool),
		errors.Is(err, usecase.ErrInvalidReorder),
		errors.Is(err, usecase.ErrEmptyBatch):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrWatchClosed):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "shutting_down",
		})
	default:
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid_json",
	})
}
