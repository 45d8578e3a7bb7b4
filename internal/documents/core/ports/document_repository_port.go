package ports

import (
	"context"
	"errors"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
)

// ErrDocumentNotFound is returned by repositories when the id does not exist
// in the given collection.
var ErrDocumentNotFound = errors.New("document not found")

// ErrNotBoolean is returned by ToggleBool when the field holds a non-boolean
// value.
var ErrNotBoolean = errors.New("field is not a boolean")

type ListFilter struct {
	Collection domain.Collection

	// Optional equality filter. A document missing Field matches when
	// Collection.Defaults[Field] equals Value.
	Field string
	Value any
}

type DocumentRepositoryPort interface {
	List(ctx context.Context, f ListFilter) ([]domain.Document, error)
	Get(ctx context.Context, collection, id string) (*domain.Document, error)
	// Insert stores every document or none of them.
	Insert(ctx context.Context, docs ...*domain.Document) error

	// Merge shallow-merges fields into the stored document and sets updated_at.
	//   err = ErrDocumentNotFound -> no such document
	Merge(ctx context.Context, collection, id string, fields map[string]any, updatedAt time.Time) error
	// ToggleBool flips a boolean field in a single write and returns the new
	// value. A missing or null field counts as false.
	//   err = ErrDocumentNotFound -> no such document
	//   err = ErrNotBoolean       -> field holds something else
	ToggleBool(ctx context.Context, collection, id, field string, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string) (int64, error)
}

// ArrayFieldPort mutates array-valued fields in place so concurrent appends
// do not lose each other.
type ArrayFieldPort interface {
	AppendToArray(ctx context.Context, collection, id, field string, value any, updatedAt time.Time) error
	// RemoveFromArray drops elements whose matchKey property equals matchValue.
	//   removed = false -> nothing matched
	RemoveFromArray(ctx context.Context, collection, id, field, matchKey, matchValue string, updatedAt time.Time) (removed bool, err error)
}
