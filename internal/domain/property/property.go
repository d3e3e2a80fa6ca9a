package property

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rentnest/service-rental/pkg/domain"
)

// PropertyStatus represents the listing's review state.
type PropertyStatus string

const (
	StatusPendingReview PropertyStatus = "pending_review"
	StatusApproved      PropertyStatus = "approved"
	StatusRejected      PropertyStatus = "rejected"
	StatusArchived      PropertyStatus = "archived"
)

// IsValid returns true if the status is recognized.
func (s PropertyStatus) IsValid() bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// PropertyType classifies the rentable unit.
type PropertyType string

const (
	TypeApartment  PropertyType = "apartment"
	TypeHouse      PropertyType = "house"
	TypeRoom       PropertyType = "room"
	TypeStudio     PropertyType = "studio"
	TypeCommercial PropertyType = "commercial"
)

// IsValid returns true if the property type is recognized.
func (t PropertyType) IsValid() bool {
	switch t {
	case TypeApartment, TypeHouse, TypeRoom, TypeStudio, TypeCommercial:
		return true
	}
	return false
}

// Details are the owner-editable listing fields.
type Details struct {
	Title        string
	Description  string
	PropertyType PropertyType
	Address      string
	City         string
	MonthlyRate  float64
	Currency     string
	Bedrooms     int
	Bathrooms    int
	AreaSqm      float64
	MapsURL      string
}

// Property is the aggregate root for a rental listing.
type Property struct {
	id          uuid.UUID
	ownerID     uuid.UUID
	details     Details
	coordinates *Coordinates
	status      PropertyStatus
	reviewNote  string
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// Snapshot is the full persisted state of a property.
type Snapshot struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Details     Details
	Coordinates *Coordinates
	Status      PropertyStatus
	ReviewNote  string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	maxTitleLength   = 200
	maxAddressLength = 300
	maxCityLength    = 100
)

func validateDetails(d Details) error {
	if strings.TrimSpace(d.Title) == "" {
		return domain.NewValidationError("title is required")
	}
	if utf8.RuneCountInString(d.Title) > maxTitleLength {
		return domain.NewValidationError(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(d.Address) > maxAddressLength {
		return domain.NewValidationError(fmt.Sprintf("address must be at most %d characters", maxAddressLength))
	}
	if utf8.RuneCountInString(d.City) > maxCityLength {
		return domain.NewValidationError(fmt.Sprintf("city must be at most %d characters", maxCityLength))
	}
	if !d.PropertyType.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid property type: %s", d.PropertyType))
	}
	if strings.TrimSpace(d.Address) == "" {
		return domain.NewValidationError("address is required")
	}
	if strings.TrimSpace(d.City) == "" {
		return domain.NewValidationError("city is required")
	}
	if d.MonthlyRate <= 0 {
		return domain.NewValidationError("monthly rate must be positive")
	}
	if len(d.Currency) != 3 {
		return domain.NewValidationError("currency must be a 3-letter code")
	}
	if d.Bedrooms < 0 || d.Bathrooms < 0 || d.AreaSqm < 0 {
		return domain.NewValidationError("room counts and area must not be negative")
	}
	return nil
}

func normalizeDetails(d Details) Details {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	d.MapsURL = strings.TrimSpace(d.MapsURL)
	return d
}

// NewProperty creates a listing awaiting admin review.
func NewProperty(ownerID uuid.UUID, details Details) (*Property, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	details = normalizeDetails(details)
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Property{
		id:        uuid.New(),
		ownerID:   ownerID,
		details:   details,
		status:    StatusPendingReview,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}
	p.refreshCoordinates()
	return p, nil
}

// Reconstruct rebuilds a Property from persistence data (no validation).
func Reconstruct(s Snapshot) *Property {
	return &Property{
		id:          s.ID,
		ownerID:     s.OwnerID,
		details:     s.Details,
		coordinates: s.Coordinates,
		status:      s.Status,
		reviewNote:  s.ReviewNote,
		version:     s.Version,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
}

// Snapshot returns a copy of the property's state for persistence.
func (p *Property) Snapshot() Snapshot {
	return Snapshot{
		ID:          p.id,
		OwnerID:     p.ownerID,
		Details:     p.details,
		Coordinates: p.coordinates,
		Status:      p.status,
		ReviewNote:  p.reviewNote,
		Version:     p.version,
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.updatedAt,
	}
}

// --- Getters ---

// ID returns the property ID.
func (p *Property) ID() uuid.UUID { return p.id }

// OwnerID returns the owner who listed the property.
func (p *Property) OwnerID() uuid.UUID { return p.ownerID }

// Details returns the listing details.
func (p *Property) Details() Details { return p.details }

// Title returns the listing title.
func (p *Property) Title() string { return p.details.Title }

// MonthlyRate returns the monthly rent.
func (p *Property) MonthlyRate() float64 { return p.details.MonthlyRate }

// Currency returns the currency of the monthly rent.
func (p *Property) Currency() string { return p.details.Currency }

// Coordinates returns the location parsed from the maps URL, if any.
func (p *Property) Coordinates() *Coordinates { return p.coordinates }

// Status returns the review status.
func (p *Property) Status() PropertyStatus { return p.status }

// ReviewNote returns the note left with the last rejection.
func (p *Property) ReviewNote() string { return p.reviewNote }

// Version returns the entity version.
func (p *Property) Version() int64 { return p.version }

// CreatedAt returns when the property was listed.
func (p *Property) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last modification time.
func (p *Property) UpdatedAt() time.Time { return p.updatedAt }

// --- Behavior ---

// VisibleTo reports whether a viewer may see the listing. Approved listings are
// public; any other status is shown only to its owner and to admins.
func (p *Property) VisibleTo(viewerID uuid.UUID, viewerIsAdmin bool) bool {
	if p.IsBookable() || viewerIsAdmin {
		return true
	}
	return viewerID != uuid.Nil && p.IsOwnedBy(viewerID)
}

// IsOwnedBy checks if the listing belongs to the given owner.
func (p *Property) IsOwnedBy(ownerID uuid.UUID) bool {
	return p.ownerID == ownerID
}

// IsBookable returns true if renters may request bookings for the listing.
func (p *Property) IsBookable() bool {
	return p.status == StatusApproved
}

// Update applies non-zero fields from d. An approved or rejected listing
// goes back to review since its content changed.
func (p *Property) Update(d Details) error {
	if p.status == StatusArchived {
		return domain.NewInvalidStateError("update property", string(p.status))
	}

	next := p.details
	d = normalizeDetails(d)
	if d.Title != "" {
		next.Title = d.Title
	}
	if d.Description != "" {
		next.Description = d.Description
	}
	if d.PropertyType != "" {
		next.PropertyType = d.PropertyType
	}
	if d.Address != "" {
		next.Address = d.Address
	}
	if d.City != "" {
		next.City = d.City
	}
	if d.MonthlyRate != 0 {
		next.MonthlyRate = d.MonthlyRate
	}
	if d.Currency != "" {
		next.Currency = d.Currency
	}
	if d.Bedrooms != 0 {
		next.Bedrooms = d.Bedrooms
	}
	if d.Bathrooms != 0 {
		next.Bathrooms = d.Bathrooms
	}
	if d.AreaSqm != 0 {
		next.AreaSqm = d.AreaSqm
	}
	if d.MapsURL != "" {
		next.MapsURL = d.MapsURL
	}
	if err := validateDetails(next); err != nil {
		return err
	}

	p.details = next
	p.refreshCoordinates()
	if p.status == StatusApproved || p.status == StatusRejected {
		p.status = StatusPendingReview
		p.reviewNote = ""
	}
	p.touch()
	return nil
}

// Approve publishes a listing under review.
func (p *Property) Approve() error {
	if p.status != StatusPendingReview {
		return domain.NewInvalidTransitionError("approve", string(p.status))
	}
	p.status = StatusApproved
	p.reviewNote = ""
	p.touch()
	return nil
}

// Reject sends a listing under review back to the owner with a note.
func (p *Property) Reject(note string) error {
	if p.status != StatusPendingReview {
		return domain.NewInvalidTransitionError("reject", string(p.status))
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return domain.NewValidationError("a rejection note is required")
	}
	p.status = StatusRejected
	p.reviewNote = note
	p.touch()
	return nil
}

// Archive hides the listing permanently.
func (p *Property) Archive() error {
	if p.status == StatusArchived {
		return domain.NewInvalidTransitionError("archive", string(p.status))
	}
	p.status = StatusArchived
	p.touch()
	return nil
}

func (p *Property) refreshCoordinates() {
	if p.details.MapsURL == "" {
		p.coordinates = nil
		return
	}
	if c, ok := ParseMapsURL(p.details.MapsURL); ok {
		p.coordinates = &c
		return
	}
	p.coordinates = nil
}

func (p *Property) touch() {
	p.version++
	p.updatedAt = time.Now().UTC()
}
