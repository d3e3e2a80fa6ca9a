package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	"github.com/rentnest/service-rental/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingNumber string     `gorm:"uniqueIndex;not null;size:20"`
	PropertyID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	RenterID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	OwnerID       uuid.UUID  `gorm:"type:uuid;index;not null"`
	RenterPhone   string     `gorm:"not null;size:32"`
	Status        string     `gorm:"not null;size:20;index"`
	StartDate     time.Time  `gorm:"type:date;not null"`
	EndDate       *time.Time `gorm:"type:date"`
	OpenEnded     bool       `gorm:"not null;default:false"`
	Note          string     `gorm:"size:2000"`
	MonthlyRate   float64    `gorm:"type:numeric(12,2);not null"`
	TotalAmount   float64    `gorm:"type:numeric(12,2);not null"`
	Currency      string     `gorm:"not null;size:3"`
	StatusReason  string     `gorm:"size:500"`
	LastActorID   *uuid.UUID `gorm:"type:uuid"`
	LastActorRole string     `gorm:"size:20"`
	ApprovedAt    *time.Time
	DeclinedAt    *time.Time
	PaidAt        *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	Version       int64     `gorm:"not null;default:1"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

var terminalStatuses = []string{
	string(bookingDomain.StatusDeclined),
	string(bookingDomain.StatusCancelled),
	string(bookingDomain.StatusCompleted),
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// List retrieves the bookings visible under filter, newest first.
func (r *GormBookingRepository) List(ctx context.Context, filter bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{})
	switch filter.Role {
	case bookingDomain.RoleRenter:
		query = query.Where("renter_id = ?", filter.UserID)
	case bookingDomain.RoleOwner:
		query = query.Where("owner_id = ?", filter.UserID)
	case bookingDomain.RoleAdmin, bookingDomain.RoleSystem:
	default:
		return nil, 0, domain.NewForbiddenError(fmt.Sprintf("unknown role: %s", filter.Role))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	if err := query.
		Order("created_at DESC").
		Offset(domain.Offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListForReport retrieves every booking matching filter. From and To bound
// the creation day, both inclusive.
func (r *GormBookingRepository) ListForReport(ctx context.Context, filter bookingDomain.ReportFilter) ([]*bookingDomain.Booking, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", bookingDomain.CalendarDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", bookingDomain.CalendarDate(*filter.To).AddDate(0, 0, 1))
	}

	var models []BookingModel
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings for report: %w", err)
	}
	return toDomainBookings(models)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// SumAmountByStatus sums total_amount per status. Open-ended bookings carry a
// monthly figure rather than a total and are left out.
func (r *GormBookingRepository) SumAmountByStatus(ctx context.Context) (map[string]float64, error) {
	type statusSum struct {
		Status string
		Total  float64
	}
	var results []statusSum
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, COALESCE(SUM(total_amount), 0) as total").
		Where("open_ended = ?", false).
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to sum by status: %w", err)
	}

	sums := make(map[string]float64)
	for _, ss := range results {
		sums[ss.Status] = ss.Total
	}
	return sums, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// UpdateStatus writes the transition only if the row still has the expected status.
func (r *GormBookingRepository) UpdateStatus(ctx context.Context, bk *bookingDomain.Booking, expected bookingDomain.BookingStatus) error {
	model := toBookingModel(bk)
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ?", model.ID, string(expected)).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"status_reason":   model.StatusReason,
			"last_actor_id":   model.LastActorID,
			"last_actor_role": model.LastActorRole,
			"approved_at":     model.ApprovedAt,
			"declined_at":     model.DeclinedAt,
			"paid_at":         model.PaidAt,
			"completed_at":    model.CompletedAt,
			"cancelled_at":    model.CancelledAt,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingDomain.ErrStatusConflict
	}
	return nil
}

// UpdateDetails persists renter contact changes with optimistic locking.
func (r *GormBookingRepository) UpdateDetails(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ? AND version = ?", model.ID, string(bookingDomain.StatusPending), model.Version-1).
		Updates(map[string]interface{}{
			"renter_phone": model.RenterPhone,
			"note":         model.Note,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking details: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// Delete removes a terminal booking.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, terminalStatuses).
		Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return domain.NewInvalidStateError("delete booking", string(current.Status()))
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	s := bk.Snapshot()
	return &BookingModel{
		ID:            s.ID,
		BookingNumber: s.BookingNumber,
		PropertyID:    s.PropertyID,
		RenterID:      s.RenterID,
		OwnerID:       s.OwnerID,
		RenterPhone:   s.RenterPhone,
		Status:        string(s.Status),
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		OpenEnded:     s.OpenEnded,
		Note:          s.Note,
		MonthlyRate:   s.MonthlyRate,
		TotalAmount:   s.TotalAmount,
		Currency:      s.Currency,
		StatusReason:  s.StatusReason,
		LastActorID:   s.LastActorID,
		LastActorRole: string(s.LastActorRole),
		ApprovedAt:    s.ApprovedAt,
		DeclinedAt:    s.DeclinedAt,
		PaidAt:        s.PaidAt,
		CompletedAt:   s.CompletedAt,
		CancelledAt:   s.CancelledAt,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", m.ID, err)
	}

	var endDate *time.Time
	if m.EndDate != nil {
		e := bookingDomain.CalendarDate(*m.EndDate)
		endDate = &e
	}

	return bookingDomain.ReconstructBooking(bookingDomain.Snapshot{
		ID:            m.ID,
		BookingNumber: m.BookingNumber,
		PropertyID:    m.PropertyID,
		RenterID:      m.RenterID,
		OwnerID:       m.OwnerID,
		RenterPhone:   m.RenterPhone,
		Status:        status,
		StartDate:     bookingDomain.CalendarDate(m.StartDate),
		EndDate:       endDate,
		OpenEnded:     m.OpenEnded,
		Note:          m.Note,
		MonthlyRate:   m.MonthlyRate,
		TotalAmount:   m.TotalAmount,
		Currency:      m.Currency,
		StatusReason:  m.StatusReason,
		LastActorID:   m.LastActorID,
		LastActorRole: bookingDomain.ActorRole(m.LastActorRole),
		ApprovedAt:    m.ApprovedAt,
		DeclinedAt:    m.DeclinedAt,
		PaidAt:        m.PaidAt,
		CompletedAt:   m.CompletedAt,
		CancelledAt:   m.CancelledAt,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
