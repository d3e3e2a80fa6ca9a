package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStatusConflict is returned by UpdateStatus when the stored status no
// longer matches the expected one.
var ErrStatusConflict = errors.New("booking status changed concurrently")

// ListFilter selects bookings visible to a role.
type ListFilter struct {
	Role   ActorRole
	UserID uuid.UUID
	Status *BookingStatus
	Page   int
	Limit  int
}

// ReportFilter selects bookings for admin reports.
type ReportFilter struct {
	Status *BookingStatus
	From   *time.Time
	To     *time.Time
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// List retrieves bookings visible under the filter with pagination.
	List(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)

	// ListForReport retrieves every booking matching the report filter.
	ListForReport(ctx context.Context, filter ReportFilter) ([]*Booking, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// SumAmountByStatus returns the sum of fixed-range amounts grouped by status.
	SumAmountByStatus(ctx context.Context) (map[string]float64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// UpdateStatus persists a status transition only if the stored status
	// still equals expected, returning ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, booking *Booking, expected BookingStatus) error

	// UpdateDetails persists renter contact changes on a pending booking.
	UpdateDetails(ctx context.Context, booking *Booking) error

	// Delete removes a booking that is in a terminal state.
	Delete(ctx context.Context, id uuid.UUID) error
}
