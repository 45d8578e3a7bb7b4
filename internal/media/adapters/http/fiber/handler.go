package fiber

import (
	"context"
	"errors"
	"net/http"

	"visit-dashboard-service/internal/media/core/domain"
	"visit-dashboard-service/internal/media/core/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

type MediaUseCase interface {
	Upload(ctx context.Context, in usecase.UploadInput) (*domain.Descriptor, error)
	Remove(ctx context.Context, in usecase.RemoveInput) error
	URL(ctx context.Context, key string) (string, error)
}

type MediaHandler struct {
	uc     MediaUseCase
	logger *zap.Logger
}

func NewMediaHandler(uc MediaUseCase, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{uc: uc, logger: logger}
}

// UploadMedia godoc
// @Summary Attach a photo or video to a document
// @Description The type is detected from the bytes. Images up to 10 MiB get a JPEG thumbnail; videos may be up to 200 MiB.
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param name path string true "Collection name"
// @Param id path string true "Document id"
// @Param field query string false "Array field to append to" default(photos)
// @Param file formData file true "Media file"
// @Success 201 {object} MediaResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/{id}/media [post]
func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "file_required",
			Message: "multipart field \"file\" is missing",
		})
	}

	f, err := fh.Open()
	if err != nil {
		return h.writeError(c, err)
	}
	defer f.Close()

	desc, err := h.uc.Upload(c.UserContext(), usecase.UploadInput{
		Collection: param(c, "name"),
		DocumentID: param(c, "id"),
		Field:      c.Query("field"),
		Filename:   fh.Filename,
		Body:       f,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(MediaResponse{
		Key:         desc.Key,
		ThumbKey:    desc.ThumbKey,
		ContentType: desc.ContentType,
		Size:        desc.Size,
		Filename:    desc.Filename,
		UploadedAt:  desc.UploadedAt,
	})
}

// RemoveMedia godoc
// @Summary Detach and delete a media file
// @Tags Media
// @Param name path string true "Collection name"
// @Param id path string true "Document id"
// @Param key query string true "Media key"
// @Param field query string false "Array field holding the media" default(photos)
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/{id}/media [delete]
func (h *MediaHandler) RemoveMedia(c *fiber.Ctx) error {
	err := h.uc.Remove(c.UserContext(), usecase.RemoveInput{
		Collection: param(c, "name"),
		DocumentID: param(c, "id"),
		Field:      c.Query("field"),
		Key:        c.Query("key"),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// RedirectMedia godoc
// @Summary Download a media file
// @Description Redirects to a short-lived signed URL.
// @Tags Media
// @Param key path string true "Media key"
// @Success 302
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /media/{key} [get]
func (h *MediaHandler) RedirectMedia(c *fiber.Ctx) error {
	url, err := h.uc.URL(c.UserContext(), "media/"+param(c, "*"))
	if err != nil {
		return h.writeError(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect(url, http.StatusFound)
}

func (h *MediaHandler) writeError(c *fiber.Ctx, err error) error {
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
	case errors.Is(err, usecase.ErrInvalidField),
		errors.Is(err, usecase.ErrInvalidKey),
		errors.Is(err, usecase.ErrEmptyUpload):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrMediaTooLarge):
		return c.Status(http.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error:   "media_too_large",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrUnsupportedMedia):
		return c.Status(http.StatusUnsupportedMediaType).JSON(ErrorResponse{
			Error:   "unsupported_media",
			Message: err.Error(),
		})
	default:
		h.logger.Error("media request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}

// param copies a route parameter out of the pooled request buffer.
func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}
