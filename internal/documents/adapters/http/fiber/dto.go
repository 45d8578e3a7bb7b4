package fiber

import "visit-dashboard-service/internal/documents/core/domain"

// ListDocumentsResponse is the collection mirror a page renders from.
// @Description Ordered documents of one collection
type ListDocumentsResponse struct {
	Collection string            `json:"collection" example:"wishlist"`
	Documents  []domain.Document `json:"documents" swaggertype:"array,object"`
}

type CreateDocumentResponse struct {
	ID string `json:"id" example:"0b6f5c8e-3c1f-4a55-9d55-0f0d9a9f2a11"`
}

type BulkCreateDocumentsRequest struct {
	Documents []map[string]any `json:"documents"`
}

type BulkCreateDocumentsResponse struct {
	Created int      `json:"created"`
	IDs     []string `json:"ids"`
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

type ToggleResponse struct {
	Field string `json:"field" example:"completed"`
	Value bool   `json:"value" example:"true"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"not_found"`
	Message string `json:"message,omitempty" example:"document not found"`
}
