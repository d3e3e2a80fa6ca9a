package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	"github.com/rentnest/service-rental/pkg/domain"
)

// CreatePropertyRequest holds the data for listing a new property.
type CreatePropertyRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	PropertyType string  `json:"property_type" binding:"required"`
	Address      string  `json:"address" binding:"required"`
	City         string  `json:"city" binding:"required"`
	MonthlyRate  float64 `json:"monthly_rate" binding:"required,gt=0"`
	Currency     string  `json:"currency"`
	Bedrooms     int     `json:"bedrooms" binding:"gte=0"`
	Bathrooms    int     `json:"bathrooms" binding:"gte=0"`
	AreaSqm      float64 `json:"area_sqm" binding:"gte=0"`
	MapsURL      string  `json:"maps_url"`
}

// UpdatePropertyRequest holds the fields to change; empty fields are kept.
type UpdatePropertyRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PropertyType string  `json:"property_type"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	MonthlyRate  float64 `json:"monthly_rate" binding:"gte=0"`
	Currency     string  `json:"currency"`
	Bedrooms     int     `json:"bedrooms" binding:"gte=0"`
	Bathrooms    int     `json:"bathrooms" binding:"gte=0"`
	AreaSqm      float64 `json:"area_sqm" binding:"gte=0"`
	MapsURL      string  `json:"maps_url"`
}

// SearchPropertiesQuery holds the public catalog filters.
type SearchPropertiesQuery struct {
	City         string   `form:"city"`
	PropertyType string   `form:"type"`
	MinRate      *float64 `form:"minRate"`
	MaxRate      *float64 `form:"maxRate"`
	MinBedrooms  *int     `form:"minBedrooms"`
	Query        string   `form:"q"`
	Page         int      `form:"page"`
	Limit        int      `form:"limit"`
}

// PropertyDTO is the response representation of a property.
type PropertyDTO struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PropertyType string    `json:"property_type"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	MonthlyRate  float64   `json:"monthly_rate"`
	Currency     string    `json:"currency"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	AreaSqm      float64   `json:"area_sqm"`
	MapsURL      string    `json:"maps_url,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Status       string    `json:"status"`
	ReviewNote   string    `json:"review_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PropertyService handles the property catalog and its review workflow.
type PropertyService struct {
	repo            propertyDomain.PropertyRepository
	recorder        Recorder
	defaultCurrency string
	logger          *zap.Logger
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(repo propertyDomain.PropertyRepository, recorder Recorder, defaultCurrency string, logger *zap.Logger) *PropertyService {
	return &PropertyService{
		repo:            repo,
		recorder:        recorderOrNoop(recorder),
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// CreateProperty lists a new property for review.
func (s *PropertyService) CreateProperty(ctx context.Context, ownerID uuid.UUID, req CreatePropertyRequest) (*PropertyDTO, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	p, err := propertyDomain.NewProperty(ownerID, propertyDomain.Details{
		Title:        req.Title,
		Description:  req.Description,
		PropertyType: propertyDomain.PropertyType(req.PropertyType),
		Address:      req.Address,
		City:         req.City,
		MonthlyRate:  req.MonthlyRate,
		Currency:     currency,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		AreaSqm:      req.AreaSqm,
		MapsURL:      req.MapsURL,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}

	s.logger.Info("property created",
		zap.String("property_id", p.ID().String()),
		zap.String("owner_id", ownerID.String()),
	)

	dto := toPropertyDTO(p)
	return &dto, nil
}

// UpdateProperty changes an owner's listing and sends it back to review.
func (s *PropertyService) UpdateProperty(ctx context.Context, ownerID, propertyID uuid.UUID, req UpdatePropertyRequest) (*PropertyDTO, error) {
	p, err := s.findOwned(ctx, ownerID, propertyID)
	if err != nil {
		return nil, err
	}

	if err := p.Update(propertyDomain.Details{
		Title:        req.Title,
		Description:  req.Description,
		PropertyType: propertyDomain.PropertyType(req.PropertyType),
		Address:      req.Address,
		City:         req.City,
		MonthlyRate:  req.MonthlyRate,
		Currency:     req.Currency,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		AreaSqm:      req.AreaSqm,
		MapsURL:      req.MapsURL,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("property updated", zap.String("property_id", propertyID.String()))

	dto := toPropertyDTO(p)
	return &dto, nil
}

// ArchiveProperty hides an owner's listing from the catalog.
func (s *PropertyService) ArchiveProperty(ctx context.Context, ownerID, propertyID uuid.UUID) error {
	p, err := s.findOwned(ctx, ownerID, propertyID)
	if err != nil {
		return err
	}
	if err := p.Archive(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	s.logger.Info("property archived", zap.String("property_id", propertyID.String()))
	return nil
}

// ListOwnerProperties returns every listing of an owner, whatever its status.
func (s *PropertyService) ListOwnerProperties(ctx context.Context, ownerID uuid.UUID, page, limit int) (*domain.PaginatedResult[PropertyDTO], error) {
	page, limit = normalizePage(page, limit)
	props, total, err := s.repo.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner properties: %w", err)
	}
	return toPropertyPage(props, total, page, limit), nil
}

// GetProperty returns a property. Listings that are not approved are only
// visible to their owner and to admins; everyone else gets NotFound.
func (s *PropertyService) GetProperty(ctx context.Context, propertyID, viewerID uuid.UUID, viewerIsAdmin bool) (*PropertyDTO, error) {
	p, err := s.repo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !p.VisibleTo(viewerID, viewerIsAdmin) {
		return nil, domain.NewNotFoundError("property", propertyID.String())
	}
	dto := toPropertyDTO(p)
	return &dto, nil
}

// SearchProperties queries the approved catalog.
func (s *PropertyService) SearchProperties(ctx context.Context, q SearchPropertiesQuery) (*domain.PaginatedResult[PropertyDTO], error) {
	filter := propertyDomain.SearchFilter{
		City:        q.City,
		MinRate:     q.MinRate,
		MaxRate:     q.MaxRate,
		MinBedrooms: q.MinBedrooms,
		Query:       q.Query,
	}
	if q.PropertyType != "" {
		t := propertyDomain.PropertyType(q.PropertyType)
		if !t.IsValid() {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid property type: %s", q.PropertyType))
		}
		filter.PropertyType = &t
	}
	if q.MinRate != nil && q.MaxRate != nil && *q.MinRate > *q.MaxRate {
		return nil, domain.NewValidationError("minRate must not exceed maxRate")
	}
	filter.Page, filter.Limit = normalizePage(q.Page, q.Limit)

	props, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return toPropertyPage(props, total, filter.Page, filter.Limit), nil
}

// --- Admin methods ---

// ListPendingProperties returns listings awaiting review, oldest first.
func (s *PropertyService) ListPendingProperties(ctx context.Context, page, limit int) (*domain.PaginatedResult[PropertyDTO], error) {
	page, limit = normalizePage(page, limit)
	props, total, err := s.repo.ListByStatus(ctx, propertyDomain.StatusPendingReview, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending properties: %w", err)
	}
	return toPropertyPage(props, total, page, limit), nil
}

// ApproveProperty publishes a listing.
func (s *PropertyService) ApproveProperty(ctx context.Context, propertyID uuid.UUID) (*PropertyDTO, error) {
	return s.review(ctx, propertyID, "approved", func(p *propertyDomain.Property) error {
		return p.Approve()
	})
}

// RejectProperty returns a listing to its owner with a note.
func (s *PropertyService) RejectProperty(ctx context.Context, propertyID uuid.UUID, note string) (*PropertyDTO, error) {
	return s.review(ctx, propertyID, "rejected", func(p *propertyDomain.Property) error {
		return p.Reject(note)
	})
}

func (s *PropertyService) review(ctx context.Context, propertyID uuid.UUID, decision string, apply func(*propertyDomain.Property) error) (*PropertyDTO, error) {
	p, err := s.repo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("property reviewed",
		zap.String("property_id", propertyID.String()),
		zap.String("decision", decision),
	)
	s.recorder.PropertyReviewed(decision)

	dto := toPropertyDTO(p)
	return &dto, nil
}

// --- Helpers ---

func (s *PropertyService) findOwned(ctx context.Context, ownerID, propertyID uuid.UUID) (*propertyDomain.Property, error) {
	p, err := s.repo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(ownerID) {
		return nil, domain.NewForbiddenError("property does not belong to this owner")
	}
	return p, nil
}

func toPropertyPage(props []*propertyDomain.Property, total int64, page, limit int) *domain.PaginatedResult[PropertyDTO] {
	dtos := make([]PropertyDTO, len(props))
	for i, p := range props {
		dtos[i] = toPropertyDTO(p)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result
}

func toPropertyDTO(p *propertyDomain.Property) PropertyDTO {
	d := p.Details()
	dto := PropertyDTO{
		ID:           p.ID(),
		OwnerID:      p.OwnerID(),
		Title:        d.Title,
		Description:  d.Description,
		PropertyType: string(d.PropertyType),
		Address:      d.Address,
		City:         d.City,
		MonthlyRate:  d.MonthlyRate,
		Currency:     d.Currency,
		Bedrooms:     d.Bedrooms,
		Bathrooms:    d.Bathrooms,
		AreaSqm:      d.AreaSqm,
		MapsURL:      d.MapsURL,
		Status:       string(p.Status()),
		ReviewNote:   p.ReviewNote(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
	if c := p.Coordinates(); c != nil {
		lat, lng := c.Lat, c.Lng
		dto.Latitude = &lat
		dto.Longitude = &lng
	}
	return dto
}
