package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	imageDomain "github.com/rentnest/service-rental/internal/domain/image"
	"github.com/rentnest/service-rental/pkg/domain"
)

// ImageModel is the GORM model for the property_images table.
type ImageModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	URL         string    `gorm:"type:text;not null"`
	StorageKey  string    `gorm:"type:text;not null"`
	ContentType string    `gorm:"type:varchar(50);not null"`
	SizeBytes   int64     `gorm:"not null"`
	IsCover     bool      `gorm:"not null;default:false"`
	Position    int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (ImageModel) TableName() string { return "property_images" }

// GormImageRepository implements ImageRepository using GORM.
type GormImageRepository struct {
	db *gorm.DB
}

// NewGormImageRepository creates a new GormImageRepository.
func NewGormImageRepository(db *gorm.DB) *GormImageRepository {
	return &GormImageRepository{db: db}
}

// Save persists a new property image.
func (r *GormImageRepository) Save(ctx context.Context, img *imageDomain.PropertyImage) error {
	model := toImageModel(img)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// FindByID retrieves an image by ID.
func (r *GormImageRepository) FindByID(ctx context.Context, id uuid.UUID) (*imageDomain.PropertyImage, error) {
	var model ImageModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Image", id.String())
		}
		return nil, fmt.Errorf("failed to find image by ID: %w", err)
	}
	return toImageDomain(&model), nil
}

// FindByPropertyID returns all images for a property in display order.
func (r *GormImageRepository) FindByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*imageDomain.PropertyImage, error) {
	var models []ImageModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("position ASC, created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find property images: %w", err)
	}

	images := make([]*imageDomain.PropertyImage, len(models))
	for i := range models {
		images[i] = toImageDomain(&models[i])
	}
	return images, nil
}

// SetCover clears the previous cover and flags imageID in one transaction.
func (r *GormImageRepository) SetCover(ctx context.Context, propertyID, imageID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ImageModel{}).
			Where("property_id = ? AND is_cover = ?", propertyID, true).
			Update("is_cover", false).Error; err != nil {
			return err
		}
		result := tx.Model(&ImageModel{}).
			Where("id = ? AND property_id = ?", imageID, propertyID).
			Update("is_cover", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Image", imageID.String())
		}
		return nil
	})
}

// Delete removes an image record.
func (r *GormImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ImageModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete image: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Image", id.String())
	}
	return nil
}

func toImageModel(img *imageDomain.PropertyImage) ImageModel {
	return ImageModel{
		ID:          img.ID(),
		PropertyID:  img.PropertyID(),
		URL:         img.URL(),
		StorageKey:  img.StorageKey(),
		ContentType: img.ContentType(),
		SizeBytes:   img.SizeBytes(),
		IsCover:     img.IsCover(),
		Position:    img.Position(),
		CreatedAt:   img.CreatedAt(),
	}
}

func toImageDomain(m *ImageModel) *imageDomain.PropertyImage {
	return imageDomain.Reconstruct(
		m.ID,
		m.PropertyID,
		m.URL,
		m.StorageKey,
		m.ContentType,
		m.SizeBytes,
		m.IsCover,
		m.Position,
		m.CreatedAt,
	)
}
