package image

import (
	"context"

	"github.com/google/uuid"
)

// ImageRepository defines persistence operations for property images.
type ImageRepository interface {
	Save(ctx context.Context, img *PropertyImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*PropertyImage, error)
	FindByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*PropertyImage, error)
	// SetCover makes imageID the only cover image of propertyID.
	SetCover(ctx context.Context, propertyID, imageID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
