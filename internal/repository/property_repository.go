package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	"github.com/rentnest/service-rental/pkg/domain"
)

// PropertyModel is the GORM model for the properties table.
type PropertyModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title        string    `gorm:"type:varchar(200);not null"`
	Description  string    `gorm:"type:text"`
	PropertyType string    `gorm:"type:varchar(20);not null"`
	Address      string    `gorm:"type:varchar(300);not null"`
	City         string    `gorm:"type:varchar(100);not null;index"`
	MonthlyRate  float64   `gorm:"type:numeric(12,2);not null"`
	Currency     string    `gorm:"type:varchar(3);not null"`
	Bedrooms     int       `gorm:"not null;default:0"`
	Bathrooms    int       `gorm:"not null;default:0"`
	AreaSqm      float64   `gorm:"type:numeric(8,2);not null;default:0"`
	MapsURL      string    `gorm:"type:text"`
	Latitude     *float64
	Longitude    *float64
	Status       string    `gorm:"type:varchar(20);not null;index"`
	ReviewNote   string    `gorm:"type:text"`
	Version      int64     `gorm:"not null;default:1"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (PropertyModel) TableName() string { return "properties" }

// GormPropertyRepository implements PropertyRepository using GORM.
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository.
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID retrieves a property by ID.
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	var model PropertyModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Property", id.String())
		}
		return nil, fmt.Errorf("failed to find property by ID: %w", err)
	}
	return toPropertyDomain(&model), nil
}

// FindByOwnerID lists an owner's properties, newest first.
func (r *GormPropertyRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*propertyDomain.Property, int64, error) {
	query := r.db.WithContext(ctx).Model(&PropertyModel{}).Where("owner_id = ?", ownerID)
	return r.page(query, "created_at DESC", page, limit)
}

// Search lists approved properties matching filter, newest first.
func (r *GormPropertyRepository) Search(ctx context.Context, filter propertyDomain.SearchFilter) ([]*propertyDomain.Property, int64, error) {
	query := r.db.WithContext(ctx).Model(&PropertyModel{}).
		Where("status = ?", string(propertyDomain.StatusApproved))

	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}
	if filter.PropertyType != nil {
		query = query.Where("property_type = ?", string(*filter.PropertyType))
	}
	if filter.MinRate != nil {
		query = query.Where("monthly_rate >= ?", *filter.MinRate)
	}
	if filter.MaxRate != nil {
		query = query.Where("monthly_rate <= ?", *filter.MaxRate)
	}
	if filter.MinBedrooms != nil {
		query = query.Where("bedrooms >= ?", *filter.MinBedrooms)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		query = query.Where("(title ILIKE ? OR description ILIKE ? OR address ILIKE ?)", like, like, like)
	}

	return r.page(query, "created_at DESC", filter.Page, filter.Limit)
}

// ListByStatus lists properties in a status, oldest first.
func (r *GormPropertyRepository) ListByStatus(ctx context.Context, status propertyDomain.PropertyStatus, page, limit int) ([]*propertyDomain.Property, int64, error) {
	query := r.db.WithContext(ctx).Model(&PropertyModel{}).Where("status = ?", string(status))
	return r.page(query, "created_at ASC", page, limit)
}

// Save persists a new property.
func (r *GormPropertyRepository) Save(ctx context.Context, p *propertyDomain.Property) error {
	model := toPropertyModel(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

// Update persists changes with optimistic locking on version.
func (r *GormPropertyRepository) Update(ctx context.Context, p *propertyDomain.Property) error {
	model := toPropertyModel(p)
	result := r.db.WithContext(ctx).
		Model(&PropertyModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"title":         model.Title,
			"description":   model.Description,
			"property_type": model.PropertyType,
			"address":       model.Address,
			"city":          model.City,
			"monthly_rate":  model.MonthlyRate,
			"currency":      model.Currency,
			"bedrooms":      model.Bedrooms,
			"bathrooms":     model.Bathrooms,
			"area_sqm":      model.AreaSqm,
			"maps_url":      model.MapsURL,
			"latitude":      model.Latitude,
			"longitude":     model.Longitude,
			"status":        model.Status,
			"review_note":   model.ReviewNote,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("property was modified by another transaction")
	}
	return nil
}

func (r *GormPropertyRepository) page(query *gorm.DB, order string, page, limit int) ([]*propertyDomain.Property, int64, error) {
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	var models []PropertyModel
	if err := query.
		Order(order).
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}

	props := make([]*propertyDomain.Property, len(models))
	for i := range models {
		props[i] = toPropertyDomain(&models[i])
	}
	return props, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toPropertyModel(p *propertyDomain.Property) PropertyModel {
	s := p.Snapshot()
	m := PropertyModel{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Title:        s.Details.Title,
		Description:  s.Details.Description,
		PropertyType: string(s.Details.PropertyType),
		Address:      s.Details.Address,
		City:         s.Details.City,
		MonthlyRate:  s.Details.MonthlyRate,
		Currency:     s.Details.Currency,
		Bedrooms:     s.Details.Bedrooms,
		Bathrooms:    s.Details.Bathrooms,
		AreaSqm:      s.Details.AreaSqm,
		MapsURL:      s.Details.MapsURL,
		Status:       string(s.Status),
		ReviewNote:   s.ReviewNote,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Coordinates != nil {
		lat, lng := s.Coordinates.Lat, s.Coordinates.Lng
		m.Latitude = &lat
		m.Longitude = &lng
	}
	return m
}

func toPropertyDomain(m *PropertyModel) *propertyDomain.Property {
	var coords *propertyDomain.Coordinates
	if m.Latitude != nil && m.Longitude != nil {
		coords = &propertyDomain.Coordinates{Lat: *m.Latitude, Lng: *m.Longitude}
	}
	return propertyDomain.Reconstruct(propertyDomain.Snapshot{
		ID:      m.ID,
		OwnerID: m.OwnerID,
		Details: propertyDomain.Details{
			Title:        m.Title,
			Description:  m.Description,
			PropertyType: propertyDomain.PropertyType(m.PropertyType),
			Address:      m.Address,
			City:         m.City,
			MonthlyRate:  m.MonthlyRate,
			Currency:     m.Currency,
			Bedrooms:     m.Bedrooms,
			Bathrooms:    m.Bathrooms,
			AreaSqm:      m.AreaSqm,
			MapsURL:      m.MapsURL,
		},
		Coordinates: coords,
		Status:      propertyDomain.PropertyStatus(m.Status),
		ReviewNote:  m.ReviewNote,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	})
}
