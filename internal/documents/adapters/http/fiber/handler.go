package fiber

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

const defaultHeartbeat = 25 * time.Second

type CollectionUseCase interface {
	List(ctx context.Context, in usecase.ListInput) ([]domain.Document, error)
	Get(ctx context.Context, collection, id string) (*domain.Document, error)
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	BulkAdd(ctx context.Context, collection string, batch []map[string]any) (usecase.BulkAddResult, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Toggle(ctx context.Context, collection, id, field string) (bool, error)
	Reorder(ctx context.Context, collection string, ids []string) error
}

type WatchUseCase interface {
	Watch(ctx context.Context, collection string) (<-chan domain.Snapshot, error)
}

type DocumentHandler struct {
	docs      CollectionUseCase
	watch     WatchUseCase
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewDocumentHandler(docs CollectionUseCase, watch WatchUseCase, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{
		docs:      docs,
		watch:     watch,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// ListDocuments godoc
// @Summary List a collection
// @Description Returns every document of the collection in its configured order. An optional field/value pair filters by equality.
// @Tags Documents
// @Produce json
// @Param name path string true "Collection name"
// @Param field query string false "Field to filter on"
// @Param value query string false "JSON or plain-text value the field must equal"
// @Success 200 {object} ListDocumentsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name} [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	name := param(c, "name")

	in := usecase.ListInput{Collection: name}
	if field := c.Query("field"); field != "" {
		in.Field = field
		in.Value = parseFilterValue(c.Query("value"))
	}

	docs, err := h.docs.List(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(http.StatusOK).JSON(ListDocumentsResponse{
		Collection: name,
		Documents:  docs,
	})
}

// GetDocument godoc
// @Summary Get a document
// @Tags Documents
// @Produce json
// @Param name path string true "Collection name"
// @Param id path string true "Document id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	d, err := h.docs.Get(c.UserContext(), param(c, "name"), param(c, "id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(http.StatusOK).JSON(d)
}

// CreateDocument godoc
// @Summary Add a document
// @Description Stores the posted fields as a new document. createdAt and updatedAt are set by the server.
// @Tags Documents
// @Accept json
// @Produce json
// @Param name path string true "Collection name"
// @Param request body map[string]any true "Document fields"
// @Success 201 {object} CreateDocumentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name} [post]
func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return invalidJSON(c)
	}

	id, err := h.docs.Add(c.UserContext(), param(c, "name"), fields)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(http.StatusCreated).JSON(CreateDocumentResponse{ID: id})
}

// BulkCreateDocuments godoc
// @Summary Bulk add documents
// @Tags Documents
// @Accept json
// @Produce json
// @Param name path string true "Collection name"
// @Param request body BulkCreateDocumentsRequest true "Documents"
// @Success 201 {object} BulkCreateDocumentsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/bulk [post]
func (h *DocumentHandler) BulkCreateDocuments(c *fiber.Ctx) error {
	var req BulkCreateDocumentsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if len(req.Documents) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "documents_list_required",
		})
	}

	res, err := h.docs.BulkAdd(c.UserContext(), param(c, "name"), req.Documents)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(BulkCreateDocumentsResponse{
		Created: len(res.IDs),
		IDs:     res.IDs,
	})
}

// UpdateDocument godoc
// @Summary Update a document
// @Description Shallow-merges the posted fields into the document and refreshes updatedAt.
// @Tags Documents
// @Accept json
// @Param name path string true "Collection name"
// @Param id path string true "Document id"
// @Param request body map[string]any true "Fields to merge"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/{id} [patch]
func (h *DocumentHandler) UpdateDocument(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return invalidJSON(c)
	}

	if err := h.docs.Update(c.UserContext(), param(c, "name"), param(c, "id"), fields); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags Documents
// @Param name path string true "Collection name"
// @Param id path string true "Document id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	if err := h.docs.Delete(c.UserContext(), param(c, "name"), param(c, "id")); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ToggleField godoc
// @Summary Flip a boolean field
// @Description Used for wishlist completion and diary favourites. A missing field counts as false.
// @Tags Documents
// @Produce json
// @Param name path string true "Collection name"
// @Param id path string true "Document id"
// @Param field path string true "Boolean field"
// @Success 200 {object} ToggleResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/{id}/toggle/{field} [post]
func (h *DocumentHandler) ToggleField(c *fiber.Ctx) error {
	field := param(c, "field")

	v, err := h.docs.Toggle(c.UserContext(), param(c, "name"), param(c, "id"), field)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(http.StatusOK).JSON(ToggleResponse{Field: field, Value: v})
}

// ReorderDocuments godoc
// @Summary Persist a manual ordering
// @Description Writes order = position for every listed id.
// @Tags Documents
// @Accept json
// @Param name path string true "Collection name"
// @Param request body ReorderRequest true "Ids in their new order"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /collections/{name}/order [put]
func (h *DocumentHandler) ReorderDocuments(c *fiber.Ctx) error {
	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if err := h.docs.Reorder(c.UserContext(), param(c, "name"), req.IDs); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// parseFilterValue reads JSON scalars (true, 3, "x") and falls back to the
// raw text.
func parseFilterValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// param copies a route parameter out of the pooled request buffer.
func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}
