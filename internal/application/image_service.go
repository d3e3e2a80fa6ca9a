package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	imageDomain "github.com/rentnest/service-rental/internal/domain/image"
	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	"github.com/rentnest/service-rental/internal/storage"
	"github.com/rentnest/service-rental/pkg/domain"
)

const sniffLen = 512

// ImageDTO is the API response representation of a property image.
type ImageDTO struct {
	ID          uuid.UUID `json:"id"`
	PropertyID  uuid.UUID `json:"property_id"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	IsCover     bool      `json:"is_cover"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// ImageService handles property image use cases.
type ImageService struct {
	repo     imageDomain.ImageRepository
	catalog  PropertyCatalog
	store    storage.BlobStore
	maxBytes int64
	recorder Recorder
	logger   *zap.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(
	repo imageDomain.ImageRepository,
	catalog PropertyCatalog,
	store storage.BlobStore,
	maxBytes int64,
	recorder Recorder,
	logger *zap.Logger,
) *ImageService {
	return &ImageService{
		repo:     repo,
		catalog:  catalog,
		store:    store,
		maxBytes: maxBytes,
		recorder: recorderOrNoop(recorder),
		logger:   logger,
	}
}

// UploadImage stores an image for an owner's property. The content type is
// sniffed from the data; the first image of a property becomes its cover.
func (s *ImageService) UploadImage(ctx context.Context, ownerID, propertyID uuid.UUID, r io.Reader) (*ImageDTO, error) {
	prop, err := s.findOwned(ctx, ownerID, propertyID)
	if err != nil {
		return nil, err
	}
	if prop.Status() == propertyDomain.StatusArchived {
		return nil, domain.NewInvalidStateError("upload image", string(prop.Status()))
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, domain.NewValidationError("image is empty")
	}
	contentType := http.DetectContentType(head)
	ext, ok := imageDomain.AllowedContentTypes[contentType]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported content type: %s", contentType))
	}

	existing, err := s.repo.FindByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load property images: %w", err)
	}
	position := 0
	for _, img := range existing {
		if img.Position() >= position {
			position = img.Position() + 1
		}
	}

	key := fmt.Sprintf("properties/%s/%s%s", propertyID, uuid.NewString(), ext)
	size, err := s.store.Put(ctx, key, br, s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, domain.NewValidationError(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
		}
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	img, err := imageDomain.NewPropertyImage(propertyID, s.store.URL(key), key, contentType, size, position)
	if err != nil {
		s.discardBlob(ctx, key)
		return nil, err
	}
	if len(existing) == 0 {
		img.MarkCover()
	}
	if err := s.repo.Save(ctx, img); err != nil {
		s.discardBlob(ctx, key)
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	s.logger.Info("property image uploaded",
		zap.String("property_id", propertyID.String()),
		zap.String("image_id", img.ID().String()),
		zap.Int64("size_bytes", size),
		zap.Bool("cover", img.IsCover()),
	)
	s.recorder.ImageUploaded(contentType, size)

	dto := toImageDTO(img)
	return &dto, nil
}

// ListImages returns a property's images in display order. Images of a
// listing the viewer may not see are reported as not found.
func (s *ImageService) ListImages(ctx context.Context, propertyID, viewerID uuid.UUID, viewerIsAdmin bool) ([]ImageDTO, error) {
	prop, err := s.catalog.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !prop.VisibleTo(viewerID, viewerIsAdmin) {
		return nil, domain.NewNotFoundError("property", propertyID.String())
	}

	images, err := s.repo.FindByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	dtos := make([]ImageDTO, len(images))
	for i, img := range images {
		dtos[i] = toImageDTO(img)
	}
	return dtos, nil
}

// SetCover makes an image the property's cover.
func (s *ImageService) SetCover(ctx context.Context, ownerID, propertyID, imageID uuid.UUID) (*ImageDTO, error) {
	if _, err := s.findOwned(ctx, ownerID, propertyID); err != nil {
		return nil, err
	}
	img, err := s.findImage(ctx, propertyID, imageID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCover(ctx, propertyID, imageID); err != nil {
		return nil, fmt.Errorf("failed to set cover image: %w", err)
	}
	img.MarkCover()

	dto := toImageDTO(img)
	return &dto, nil
}

// DeleteImage removes an image, promoting another one if it was the cover.
func (s *ImageService) DeleteImage(ctx context.Context, ownerID, propertyID, imageID uuid.UUID) error {
	if _, err := s.findOwned(ctx, ownerID, propertyID); err != nil {
		return err
	}
	img, err := s.findImage(ctx, propertyID, imageID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	if img.IsCover() {
		remaining, err := s.repo.FindByPropertyID(ctx, propertyID)
		if err != nil {
			return fmt.Errorf("failed to load property images: %w", err)
		}
		if next := imageDomain.NextCover(remaining); next != nil {
			if err := s.repo.SetCover(ctx, propertyID, next.ID()); err != nil {
				return fmt.Errorf("failed to promote cover image: %w", err)
			}
		}
	}

	s.discardBlob(ctx, img.StorageKey())
	s.logger.Info("property image deleted",
		zap.String("property_id", propertyID.String()),
		zap.String("image_id", imageID.String()),
	)
	return nil
}

// --- Helpers ---

func (s *ImageService) findOwned(ctx context.Context, ownerID, propertyID uuid.UUID) (*propertyDomain.Property, error) {
	prop, err := s.catalog.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !prop.IsOwnedBy(ownerID) {
		return nil, domain.NewForbiddenError("property does not belong to this owner")
	}
	return prop, nil
}

func (s *ImageService) findImage(ctx context.Context, propertyID, imageID uuid.UUID) (*imageDomain.PropertyImage, error) {
	img, err := s.repo.FindByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if img.PropertyID() != propertyID {
		return nil, domain.NewNotFoundError("image", imageID.String())
	}
	return img, nil
}

func (s *ImageService) discardBlob(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete image blob", zap.String("key", key), zap.Error(err))
	}
}

func toImageDTO(img *imageDomain.PropertyImage) ImageDTO {
	return ImageDTO{
		ID:          img.ID(),
		PropertyID:  img.PropertyID(),
		URL:         img.URL(),
		ContentType: img.ContentType(),
		SizeBytes:   img.SizeBytes(),
		IsCover:     img.IsCover(),
		Position:    img.Position(),
		CreatedAt:   img.CreatedAt(),
	}
}
