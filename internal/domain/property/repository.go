package property

import (
	"context"

	"github.com/google/uuid"
)

// SearchFilter narrows the public catalog listing.
type SearchFilter struct {
	City         string
	PropertyType *PropertyType
	MinRate      *float64
	MaxRate      *float64
	MinBedrooms  *int
	Query        string
	Page         int
	Limit        int
}

// PropertyRepository defines the persistence interface for properties.
type PropertyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Property, int64, error)
	Search(ctx context.Context, filter SearchFilter) ([]*Property, int64, error)
	ListByStatus(ctx context.Context, status PropertyStatus, page, limit int) ([]*Property, int64, error)
	Save(ctx context.Context, p *Property) error
	Update(ctx context.Context, p *Property) error
}
