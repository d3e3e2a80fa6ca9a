package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rentnest/service-rental/pkg/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	maxNoteLength   = 2000
	maxReasonLength = 500
	maxPhoneLength  = 32
	minPhoneDigits  = 7
	maxPhoneDigits  = 15
)

var nonDigits = regexp.MustCompile(`\D`)

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	propertyID    uuid.UUID
	renterID      uuid.UUID
	ownerID       uuid.UUID
	renterPhone   string
	status        BookingStatus

	startDate time.Time
	endDate   *time.Time
	openEnded bool
	note      string

	monthlyRate float64
	totalAmount float64
	currency    string

	statusReason  string
	lastActorID   *uuid.UUID
	lastActorRole ActorRole
	approvedAt    *time.Time
	declinedAt    *time.Time
	paidAt        *time.Time
	completedAt   *time.Time
	cancelledAt   *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBookingParams holds the input for creating a booking.
type NewBookingParams struct {
	PropertyID  uuid.UUID
	RenterID    uuid.UUID
	OwnerID     uuid.UUID
	RenterPhone string
	StartDate   time.Time
	EndDate     *time.Time
	OpenEnded   bool
	Note        string
	MonthlyRate float64
	Currency    string
}

// Snapshot is the full persisted state of a booking.
type Snapshot struct {
	ID            uuid.UUID
	BookingNumber string
	PropertyID    uuid.UUID
	RenterID      uuid.UUID
	OwnerID       uuid.UUID
	RenterPhone   string
	Status        BookingStatus
	StartDate     time.Time
	EndDate       *time.Time
	OpenEnded     bool
	Note          string
	MonthlyRate   float64
	TotalAmount   float64
	Currency      string
	StatusReason  string
	LastActorID   *uuid.UUID
	LastActorRole ActorRole
	ApprovedAt    *time.Time
	DeclinedAt    *time.Time
	PaidAt        *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// generateBookingNumber creates a booking number in the format "RB-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "RB-" + string(result), nil
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateSchedule checks the date invariants: a start date is required,
// exactly one of endDate or openEnded is set, and endDate is not before startDate.
func ValidateSchedule(startDate time.Time, endDate *time.Time, openEnded bool) error {
	if startDate.IsZero() {
		return domain.NewValidationError("start date is required")
	}
	if openEnded && endDate != nil {
		return domain.NewValidationError("open-ended bookings must not have an end date")
	}
	if !openEnded && endDate == nil {
		return domain.NewValidationError("end date is required unless the booking is open-ended")
	}
	if endDate != nil && CalendarDate(*endDate).Before(CalendarDate(startDate)) {
		return domain.NewValidationError("end date must not be before start date")
	}
	return nil
}

// NormalizePhone trims a contact number and checks it has a plausible digit count.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", domain.NewValidationError("renter phone is required")
	}
	if utf8.RuneCountInString(phone) > maxPhoneLength {
		return "", domain.NewValidationError(fmt.Sprintf("renter phone must be at most %d characters", maxPhoneLength))
	}
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", domain.NewValidationError("renter phone must contain between 7 and 15 digits")
	}
	return phone, nil
}

// NewBooking creates a new Booking aggregate with status=pending. The total
// amount is estimated with pricing once the schedule is known to be valid.
func NewBooking(params NewBookingParams, pricing PricingStrategy) (*Booking, error) {
	if params.PropertyID == uuid.Nil {
		return nil, domain.NewValidationError("property ID is required")
	}
	if params.RenterID == uuid.Nil {
		return nil, domain.NewValidationError("renter ID is required")
	}
	if params.OwnerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if err := ValidateSchedule(params.StartDate, params.EndDate, params.OpenEnded); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(params.RenterPhone)
	if err != nil {
		return nil, err
	}
	if params.MonthlyRate < 0 {
		return nil, domain.NewValidationError("monthly rate must not be negative")
	}
	note := strings.TrimSpace(params.Note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, domain.NewValidationError("note is too long")
	}

	start := CalendarDate(params.StartDate)
	var end *time.Time
	if params.EndDate != nil {
		e := CalendarDate(*params.EndDate)
		end = &e
	}

	total := pricing.Estimate(PricingParams{
		MonthlyRate: params.MonthlyRate,
		StartDate:   start,
		EndDate:     end,
		OpenEnded:   params.OpenEnded,
	})

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		propertyID:    params.PropertyID,
		renterID:      params.RenterID,
		ownerID:       params.OwnerID,
		renterPhone:   phone,
		status:        StatusPending,
		startDate:     start,
		endDate:       end,
		openEnded:     params.OpenEnded,
		note:          note,
		monthlyRate:   params.MonthlyRate,
		totalAmount:   total,
		currency:      params.Currency,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(s Snapshot) *Booking {
	return &Booking{
		id:            s.ID,
		bookingNumber: s.BookingNumber,
		propertyID:    s.PropertyID,
		renterID:      s.RenterID,
		ownerID:       s.OwnerID,
		renterPhone:   s.RenterPhone,
		status:        s.Status,
		startDate:     s.StartDate,
		endDate:       s.EndDate,
		openEnded:     s.OpenEnded,
		note:          s.Note,
		monthlyRate:   s.MonthlyRate,
		totalAmount:   s.TotalAmount,
		currency:      s.Currency,
		statusReason:  s.StatusReason,
		lastActorID:   s.LastActorID,
		lastActorRole: s.LastActorRole,
		approvedAt:    s.ApprovedAt,
		declinedAt:    s.DeclinedAt,
		paidAt:        s.PaidAt,
		completedAt:   s.CompletedAt,
		cancelledAt:   s.CancelledAt,
		version:       s.Version,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
	}
}

// Snapshot returns a copy of the booking's state for persistence.
func (b *Booking) Snapshot() Snapshot {
	return Snapshot{
		ID:            b.id,
		BookingNumber: b.bookingNumber,
		PropertyID:    b.propertyID,
		RenterID:      b.renterID,
		OwnerID:       b.ownerID,
		RenterPhone:   b.renterPhone,
		Status:        b.status,
		StartDate:     b.startDate,
		EndDate:       b.endDate,
		OpenEnded:     b.openEnded,
		Note:          b.note,
		MonthlyRate:   b.monthlyRate,
		TotalAmount:   b.totalAmount,
		Currency:      b.currency,
		StatusReason:  b.statusReason,
		LastActorID:   b.lastActorID,
		LastActorRole: b.lastActorRole,
		ApprovedAt:    b.approvedAt,
		DeclinedAt:    b.declinedAt,
		PaidAt:        b.paidAt,
		CompletedAt:   b.completedAt,
		CancelledAt:   b.cancelledAt,
		Version:       b.version,
		CreatedAt:     b.createdAt,
		UpdatedAt:     b.updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// PropertyID returns the rented property's ID.
func (b *Booking) PropertyID() uuid.UUID { return b.propertyID }

// RenterID returns the requesting user's ID.
func (b *Booking) RenterID() uuid.UUID { return b.renterID }

// OwnerID returns the property owner's ID as of booking creation.
func (b *Booking) OwnerID() uuid.UUID { return b.ownerID }

// RenterPhone returns the renter's contact number.
func (b *Booking) RenterPhone() string { return b.renterPhone }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// StartDate returns the first booked calendar day.
func (b *Booking) StartDate() time.Time { return b.startDate }

// EndDate returns the last booked calendar day, or nil if open-ended.
func (b *Booking) EndDate() *time.Time { return b.endDate }

// OpenEnded returns true if the booking has no fixed end.
func (b *Booking) OpenEnded() bool { return b.openEnded }

// Note returns the renter's note.
func (b *Booking) Note() string { return b.note }

// MonthlyRate returns the property rate captured at creation.
func (b *Booking) MonthlyRate() float64 { return b.monthlyRate }

// TotalAmount returns the estimate frozen at creation. For open-ended
// bookings this is a per-month figure.
func (b *Booking) TotalAmount() float64 { return b.totalAmount }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// StatusReason returns the reason supplied with the last decline or cancel.
func (b *Booking) StatusReason() string { return b.statusReason }

// LastActorID returns who applied the last transition.
func (b *Booking) LastActorID() *uuid.UUID { return b.lastActorID }

// LastActorRole returns the role of the last transition's actor.
func (b *Booking) LastActorRole() ActorRole { return b.lastActorRole }

// ApprovedAt returns when the booking was approved.
func (b *Booking) ApprovedAt() *time.Time { return b.approvedAt }

// DeclinedAt returns when the booking was declined.
func (b *Booking) DeclinedAt() *time.Time { return b.declinedAt }

// PaidAt returns when the booking was marked paid.
func (b *Booking) PaidAt() *time.Time { return b.paidAt }

// CompletedAt returns when the booking was completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns when the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// IsParticipant reports whether the actor may see this booking.
func (b *Booking) IsParticipant(actor Actor) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.Role == RoleRenter:
		return actor.ID == b.renterID
	case actor.Role == RoleOwner:
		return actor.ID == b.ownerID
	}
	return false
}

// Apply performs a lifecycle action. The actor's role is checked before the
// current status, so a role that may never perform the action is always
// forbidden. Renters and owners may only act on their own bookings.
func (b *Booking) Apply(action Action, actor Actor, reason string) error {
	target, ok := action.Target()
	if !ok {
		return domain.NewValidationError(fmt.Sprintf("unknown action: %s", action))
	}
	if !action.AllowsRole(actor.Role) {
		return domain.NewForbiddenError(fmt.Sprintf("role %s may not %s a booking", actor.Role, action))
	}
	if !b.IsParticipant(actor) {
		return domain.NewForbiddenError("booking does not belong to this user")
	}
	if !action.AllowedFrom(b.status) {
		return domain.NewInvalidTransitionError(string(action), string(b.status))
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return domain.NewValidationError(fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}

	now := time.Now().UTC()
	switch target {
	case StatusApproved:
		b.approvedAt = &now
	case StatusDeclined:
		b.declinedAt = &now
		b.statusReason = reason
	case StatusPaid:
		b.paidAt = &now
	case StatusCompleted:
		b.completedAt = &now
	case StatusCancelled:
		b.cancelledAt = &now
		b.statusReason = reason
	}

	actorID := actor.ID
	b.lastActorID = &actorID
	b.lastActorRole = actor.Role
	b.status = target
	b.version++
	b.updatedAt = now
	return nil
}

// UpdateContact changes the renter phone and note while the booking is pending.
func (b *Booking) UpdateContact(actor Actor, phone, note *string) error {
	if actor.Role != RoleRenter || actor.ID != b.renterID {
		return domain.NewForbiddenError("only the renter may edit booking details")
	}
	if b.status != StatusPending {
		return domain.NewInvalidStateError("edit booking details", string(b.status))
	}
	if phone != nil {
		p, err := NormalizePhone(*phone)
		if err != nil {
			return err
		}
		b.renterPhone = p
	}
	if note != nil {
		n := strings.TrimSpace(*note)
		if utf8.RuneCountInString(n) > maxNoteLength {
			return domain.NewValidationError("note is too long")
		}
		b.note = n
	}
	b.version++
	b.updatedAt = time.Now().UTC()
	return nil
}

// CheckDeletable returns an error unless an admin is deleting a terminal booking.
func (b *Booking) CheckDeletable(actor Actor) error {
	if !actor.IsAdmin() {
		return domain.NewForbiddenError("only admins may delete bookings")
	}
	if !b.status.IsTerminal() {
		return domain.NewInvalidStateError("delete booking", string(b.status))
	}
	return nil
}
