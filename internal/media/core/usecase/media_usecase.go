package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	docdomain "visit-dashboard-service/internal/documents/core/domain"
	docports "visit-dashboard-service/internal/documents/core/ports"
	"visit-dashboard-service/internal/media/core/domain"
	"visit-dashboard-service/internal/media/core/ports"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotFound          = errors.New("media not found")
	ErrInvalidField      = errors.New("invalid field name")
	ErrInvalidKey        = errors.New("invalid media key")
	ErrEmptyUpload       = errors.New("upload is empty")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
	ErrMediaTooLarge     = errors.New("media too large")
)

const (
	keyPrefix      = "media/"
	thumbnailSize  = 480
	thumbnailType  = "image/jpeg"
	defaultURLLife = 15 * time.Minute
)

type MediaUseCase struct {
	store  ports.ObjectStorePort
	docs   ports.DocumentPort
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

func NewMediaUseCase(store ports.ObjectStorePort, docs ports.DocumentPort, ttl time.Duration, logger *zap.Logger) *MediaUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultURLLife
	}
	return &MediaUseCase{
		store:  store,
		docs:   docs,
		logger: logger,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

type UploadInput struct {
	Collection string
	DocumentID string
	Field      string // defaults to domain.DefaultField
	Filename   string
	Body       io.Reader
}

// Upload stores the body and attaches its descriptor to the document.
func (uc *MediaUseCase) Upload(ctx context.Context, in UploadInput) (*domain.Descriptor, error) {
	field, err := validateTarget(in.Collection, in.Field)
	if err != nil {
		return nil, err
	}

	if _, err := uc.docs.Get(ctx, in.Collection, in.DocumentID); err != nil {
		return nil, mapNotFound(err)
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, domain.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	detected := mimetype.Detect(data)
	kind, ok := domain.KindFor(detected.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, detected.String())
	}
	size := int64(len(data))
	if size > kind.MaxSize {
		return nil, fmt.Errorf("%w: %s is limited to %s",
			ErrMediaTooLarge, kind.MIME, humanize.IBytes(uint64(kind.MaxSize)))
	}

	id := uc.newID()
	desc := &domain.Descriptor{
		Key:         fmt.Sprintf("%s%s/%s/%s%s", keyPrefix, in.Collection, in.DocumentID, id, kind.Ext),
		ContentType: kind.MIME,
		Size:        size,
		Filename:    in.Filename,
		UploadedAt:  uc.now(),
	}

	if err := uc.store.Put(ctx, desc.Key, kind.MIME, bytes.NewReader(data), size); err != nil {
		return nil, fmt.Errorf("store %s: %w", desc.Key, err)
	}

	if kind.Thumbnail {
		thumbKey, err := uc.putThumbnail(ctx, desc.Key, data)
		if err != nil {
			// keep the upload without a thumbnail
			uc.logger.Warn("thumbnail failed",
				zap.String("key", desc.Key),
				zap.Error(err))
		} else {
			desc.ThumbKey = thumbKey
		}
	}

	if err := uc.docs.AppendToArray(ctx, in.Collection, in.DocumentID, field, desc.Fields(), desc.UploadedAt); err != nil {
		uc.discard(desc)
		return nil, mapNotFound(err)
	}

	uc.logger.Info("media uploaded",
		zap.String("collection", in.Collection),
		zap.String("document_id", in.DocumentID),
		zap.String("key", desc.Key),
		zap.String("size", humanize.IBytes(uint64(size))))

	return desc, nil
}

func (uc *MediaUseCase) putThumbnail(ctx context.Context, key string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	thumb := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", err
	}

	thumbKey := domain.ThumbKeyFor(key)
	if err := uc.store.Put(ctx, thumbKey, thumbnailType, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", err
	}
	return thumbKey, nil
}

// discard removes objects of an upload that could not be attached.
func (uc *MediaUseCase) discard(desc *domain.Descriptor) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	keys := []string{desc.Key}
	if desc.ThumbKey != "" {
		keys = append(keys, desc.ThumbKey)
	}
	for _, k := range keys {
		if err := uc.store.Delete(ctx, k); err != nil {
			uc.logger.Warn("orphaned media object", zap.String("key", k), zap.Error(err))
		}
	}
}

type RemoveInput struct {
	Collection string
	DocumentID string
	Field      string // defaults to domain.DefaultField
	Key        string
}

// Remove detaches the descriptor with the given key and deletes its objects.
func (uc *MediaUseCase) Remove(ctx context.Context, in RemoveInput) error {
	field, err := validateTarget(in.Collection, in.Field)
	if err != nil {
		return err
	}
	if err := validateKey(in.Key); err != nil {
		return err
	}

	removed, err := uc.docs.RemoveFromArray(ctx, in.Collection, in.DocumentID, field, "key", in.Key, uc.now())
	if err != nil {
		return mapNotFound(err)
	}
	if !removed {
		return ErrNotFound
	}

	for _, k := range []string{in.Key, domain.ThumbKeyFor(in.Key)} {
		if err := uc.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}

	uc.logger.Info("media removed",
		zap.String("collection", in.Collection),
		zap.String("document_id", in.DocumentID),
		zap.String("key", in.Key))
	return nil
}

// URL returns a time-limited download link for key.
func (uc *MediaUseCase) URL(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	u, err := uc.store.PresignGet(ctx, key, uc.ttl)
	if errors.Is(err, ports.ErrObjectNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return u, err
}

func validateTarget(collection, field string) (string, error) {
	if _, ok := docdomain.LookupCollection(collection); !ok {
		return "", ErrUnknownCollection
	}
	if field == "" {
		field = domain.DefaultField
	}
	if !docdomain.ValidFieldName(field) || docdomain.IsReservedField(field) {
		return "", ErrInvalidField
	}
	return field, nil
}

func validateKey(key string) error {
	if !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, docports.ErrDocumentNotFound) {
		return ErrNotFound
	}
	return err
}
