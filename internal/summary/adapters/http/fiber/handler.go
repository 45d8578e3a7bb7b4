package fiber

import (
	"context"
	"errors"
	"net/http"

	"visit-dashboard-service/internal/summary/core/domain"
	"visit-dashboard-service/internal/summary/core/usecase"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type GetSummaryUseCase interface {
	Execute(ctx context.Context, in usecase.GetSummaryInput) (*domain.Summary, error)
}

type SummaryHandler struct {
	uc     GetSummaryUseCase
	logger *zap.Logger
}

func NewSummaryHandler(uc GetSummaryUseCase, logger *zap.Logger) *SummaryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryHandler{uc: uc, logger: logger}
}

// GetSummary godoc
// @Summary Collection progress
// @Description Counts documents and how many have a boolean flag set, optionally broken down by a field (wishlist type, packing status).
// @Tags Summary
// @Produce json
// @Param name path string true "Collection name"
// @Param group_by query string false "Field to group by"
// @Param flag query string false "Boolean field to count" default(completed)
// @Success 200 {object} SummaryResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/summary [get]
func (h *SummaryHandler) GetSummary(c *fiber.Ctx) error {
	in := usecase.GetSummaryInput{
		Collection: c.Params("name"),
		GroupBy:    c.Query("group_by"),
		Flag:       c.Query("flag"),
	}

	res, err := h.uc.Execute(c.UserContext(), in)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnknownCollection):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Error:   "unknown_collection",
				Message: err.Error(),
			})
		case errors.Is(err, usecase.ErrInvalidField):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_field",
				Message: err.Error(),
			})
		default:
			h.logger.Error("summary failed", zap.String("collection", in.Collection), zap.Error(err))
			return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
				Error: "internal_server_error",
			})
		}
	}

	resp := SummaryResponse{
		Collection: res.Collection,
		GroupBy:    res.GroupBy,
		Flag:       res.Flag,
		Total:      res.Total,
		Flagged:    res.Flagged,
	}
	for _, g := range res.Groups {
		resp.Groups = append(resp.Groups, SummaryGroup{
			Key:     g.Key,
			Total:   g.Total,
			Flagged: g.Flagged,
		})
	}

	return c.Status(http.StatusOK).JSON(resp)
}
