package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotFound          = errors.New("document not found")
	ErrEmptyUpdate       = errors.New("update has no fields")
	ErrInvalidField      = errors.New("invalid field name")
	ErrFieldNotBool      = errors.New("field is not a boolean")
	ErrInvalidReorder    = errors.New("invalid reorder request")
	ErrEmptyBatch        = errors.New("batch has no documents")
)

// reorderParallelism bounds concurrent order writes for one reorder request.
const reorderParallelism = 8

type CollectionUseCase struct {
	repo ports.DocumentRepositoryPort
	now  func() time.Time
}

func NewCollectionUseCase(repo ports.DocumentRepositoryPort) *CollectionUseCase {
	return &CollectionUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type ListInput struct {
	Collection string
	Field      string
	Value      any
}

func (uc *CollectionUseCase) List(ctx context.Context, in ListInput) ([]domain.Document, error) {
	col, err := lookup(in.Collection)
	if err != nil {
		return nil, err
	}
	if in.Field != "" && !domain.ValidFieldName(in.Field) {
		return nil, ErrInvalidField
	}

	docs, err := uc.repo.List(ctx, ports.ListFilter{
		Collection: col,
		Field:      in.Field,
		Value:      in.Value,
	})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, nil
}

func (uc *CollectionUseCase) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	if _, err := lookup(collection); err != nil {
		return nil, err
	}
	d, err := uc.repo.Get(ctx, collection, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return d, nil
}

// Add stores a new document and returns its id.
func (uc *CollectionUseCase) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if _, err := lookup(collection); err != nil {
		return "", err
	}
	return uc.insert(ctx, collection, fields)
}

func (uc *CollectionUseCase) insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	d := uc.newDocument(collection, fields, uc.now())
	if err := uc.repo.Insert(ctx, d); err != nil {
		return "", err
	}
	return d.ID, nil
}

func (uc *CollectionUseCase) newDocument(collection string, fields map[string]any, now time.Time) *domain.Document {
	return &domain.Document{
		ID:         uuid.NewString(),
		Collection: collection,
		Fields:     domain.StripReserved(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

type BulkAddResult struct {
	IDs []string
}

func (uc *CollectionUseCase) BulkAdd(ctx context.Context, collection string, batch []map[string]any) (BulkAddResult, error) {
	var res BulkAddResult

	if _, err := lookup(collection); err != nil {
		return res, err
	}
	if len(batch) == 0 {
		return res, ErrEmptyBatch
	}

	now := uc.now()
	docs := make([]*domain.Document, 0, len(batch))
	ids := make([]string, 0, len(batch))
	for _, fields := range batch {
		if fields == nil {
			return res, fmt.Errorf("%w: document %d is null", ErrEmptyBatch, len(docs))
		}
		d := uc.newDocument(collection, fields, now)
		docs = append(docs, d)
		ids = append(ids, d.ID)
	}

	// all or nothing
	if err := uc.repo.Insert(ctx, docs...); err != nil {
		return res, err
	}
	res.IDs = ids
	return res, nil
}

func (uc *CollectionUseCase) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := lookup(collection); err != nil {
		return err
	}
	patch := domain.StripReserved(fields)
	if len(patch) == 0 {
		return ErrEmptyUpdate
	}
	return mapNotFound(uc.repo.Merge(ctx, collection, id, patch, uc.now()))
}

func (uc *CollectionUseCase) Delete(ctx context.Context, collection, id string) error {
	if _, err := lookup(collection); err != nil {
		return err
	}
	return mapNotFound(uc.repo.Delete(ctx, collection, id))
}

// Toggle flips a boolean field and returns its new value. A missing field
// counts as false.
func (uc *CollectionUseCase) Toggle(ctx context.Context, collection, id, field string) (bool, error) {
	if _, err := lookup(collection); err != nil {
		return false, err
	}
	if !domain.ValidFieldName(field) || domain.IsReservedField(field) {
		return false, ErrInvalidField
	}

	next, err := uc.repo.ToggleBool(ctx, collection, id, field, uc.now())
	switch {
	case errors.Is(err, ports.ErrNotBoolean):
		return false, ErrFieldNotBool
	case err != nil:
		return false, mapNotFound(err)
	}
	return next, nil
}

// Reorder writes order = position for every id, in parallel.
func (uc *CollectionUseCase) Reorder(ctx context.Context, collection string, ids []string) error {
	if _, err := lookup(collection); err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrInvalidReorder
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return ErrInvalidReorder
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidReorder, id)
		}
		seen[id] = struct{}{}
	}

	now := uc.now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reorderParallelism)
	for i, id := range ids {
		g.Go(func() error {
			return uc.repo.Merge(gctx, collection, id, map[string]any{domain.FieldOrder: i}, now)
		})
	}
	return mapNotFound(g.Wait())
}

// SeedIfEmpty writes batch only when the collection has no documents yet.
func (uc *CollectionUseCase) SeedIfEmpty(ctx context.Context, collection string, batch []map[string]any) (int, error) {
	if _, err := lookup(collection); err != nil {
		return 0, err
	}
	n, err := uc.repo.Count(ctx, collection)
	if err != nil {
		return 0, err
	}
	if n > 0 || len(batch) == 0 {
		return 0, nil
	}
	res, err := uc.BulkAdd(ctx, collection, batch)
	return len(res.IDs), err
}

func lookup(name string) (domain.Collection, error) {
	col, ok := domain.LookupCollection(name)
	if !ok {
		return domain.Collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return col, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, ports.ErrDocumentNotFound) {
		return ErrNotFound
	}
	return err
}
