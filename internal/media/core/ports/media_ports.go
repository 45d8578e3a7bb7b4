package ports

import (
	"context"
	"errors"
	"io"
	"time"

	docdomain "visit-dashboard-service/internal/documents/core/domain"
	docports "visit-dashboard-service/internal/documents/core/ports"
)

// ErrObjectNotFound is returned by stores that can tell a key is absent.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorePort keeps the uploaded bytes.
type ObjectStorePort interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Delete succeeds when the key is already gone.
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DocumentPort is the slice of the document store media needs.
type DocumentPort interface {
	Get(ctx context.Context, collection, id string) (*docdomain.Document, error)
	docports.ArrayFieldPort
}
