package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/events"
	"github.com/rentnest/service-rental/pkg/kafka"
)

const (
	eventSource = "service-rental"
	dateLayout  = "2006-01-02"
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	PropertyID  uuid.UUID `json:"property_id" binding:"required"`
	RenterPhone string    `json:"renter_phone" binding:"required"`
	StartDate   string    `json:"start_date" binding:"required"`
	EndDate     *string   `json:"end_date"`
	OpenEnded   bool      `json:"open_ended"`
	Note        string    `json:"note"`
}

// UpdateBookingRequest holds the renter-editable fields of a pending booking.
type UpdateBookingRequest struct {
	RenterPhone *string `json:"renter_phone"`
	Note        *string `json:"note"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID  `json:"id"`
	BookingNumber string     `json:"booking_number"`
	PropertyID    uuid.UUID  `json:"property_id"`
	RenterID      uuid.UUID  `json:"renter_id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	RenterPhone   string     `json:"renter_phone"`
	Status        string     `json:"status"`
	StartDate     string     `json:"start_date"`
	EndDate       *string    `json:"end_date,omitempty"`
	OpenEnded     bool       `json:"open_ended"`
	Note          string     `json:"note,omitempty"`
	MonthlyRate   float64    `json:"monthly_rate"`
	TotalAmount   float64    `json:"total_amount"`
	Currency      string     `json:"currency"`
	StatusReason  string     `json:"status_reason,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	Actions       []string   `json:"available_actions,omitempty"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	catalog   PropertyCatalog
	pricing   bookingDomain.PricingStrategy
	publisher EventPublisher
	recorder  Recorder
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	catalog PropertyCatalog,
	pricing bookingDomain.PricingStrategy,
	publisher EventPublisher,
	recorder Recorder,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		catalog:   catalog,
		pricing:   pricing,
		publisher: publisher,
		recorder:  recorderOrNoop(recorder),
		logger:    logger,
	}
}

// CreateBooking requests a booking of an approved property on behalf of a renter.
// The monthly rate, currency and owner are captured from the property at this point.
func (s *BookingService) CreateBooking(ctx context.Context, actor bookingDomain.Actor, req CreateBookingRequest) (*BookingDTO, error) {
	if actor.Role != bookingDomain.RoleRenter {
		return nil, domain.NewForbiddenError("only renters may request bookings")
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			return nil, err
		}
		endDate = &end
	}

	prop, err := s.catalog.FindByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if !prop.IsBookable() {
		return nil, domain.NewInvalidStateError("book property", string(prop.Status()))
	}
	if prop.IsOwnedBy(actor.ID) {
		return nil, domain.NewValidationError("owners cannot book their own property")
	}

	bk, err := bookingDomain.NewBooking(bookingDomain.NewBookingParams{
		PropertyID:  prop.ID(),
		RenterID:    actor.ID,
		OwnerID:     prop.OwnerID(),
		RenterPhone: req.RenterPhone,
		StartDate:   startDate,
		EndDate:     endDate,
		OpenEnded:   req.OpenEnded,
		Note:        req.Note,
		MonthlyRate: prop.MonthlyRate(),
		Currency:    prop.Currency(),
	}, s.pricing)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking requested",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("property_id", bk.PropertyID().String()),
		zap.Float64("total_amount", bk.TotalAmount()),
	)
	s.recorder.BookingCreated(bk.Currency())
	s.publishBookingRequested(ctx, bk)

	result := toBookingDTO(bk, actor)
	return &result, nil
}

// Transition applies a lifecycle action. The status write is conditional on the
// status read here, so of two racing callers exactly one succeeds and the other
// gets an InvalidTransitionError carrying the status it lost to.
func (s *BookingService) Transition(ctx context.Context, bookingID uuid.UUID, action bookingDomain.Action, actor bookingDomain.Actor, reason string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := bk.Status()
	if err := bk.Apply(action, actor, reason); err != nil {
		s.recorder.BookingTransitioned(string(action), OutcomeRejected)
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, bk, from); err != nil {
		if !errors.Is(err, bookingDomain.ErrStatusConflict) {
			return nil, fmt.Errorf("failed to update booking status: %w", err)
		}
		s.recorder.BookingTransitioned(string(action), OutcomeConflict)
		current, findErr := s.repo.FindByID(ctx, bookingID)
		if findErr != nil {
			return nil, findErr
		}
		s.logger.Warn("booking status changed concurrently",
			zap.String("booking_id", bookingID.String()),
			zap.String("action", string(action)),
			zap.String("expected", string(from)),
			zap.String("observed", string(current.Status())),
		)
		return nil, domain.NewInvalidTransitionError(string(action), string(current.Status()))
	}

	s.logger.Info("booking transitioned",
		zap.String("booking_id", bk.ID().String()),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(bk.Status())),
		zap.String("actor_role", string(actor.Role)),
	)
	s.recorder.BookingTransitioned(string(action), OutcomeApplied)
	s.publishStatusChanged(ctx, bk, action, from, actor, reason)

	result := toBookingDTO(bk, actor)
	return &result, nil
}

// ApplyPaymentCaptured marks a booking paid on behalf of the payment service.
func (s *BookingService) ApplyPaymentCaptured(ctx context.Context, evt events.PaymentCapturedEvent) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, evt.BookingID)
	if err != nil {
		return nil, err
	}
	if evt.Currency != "" && evt.Currency != bk.Currency() {
		s.logger.Warn("payment currency differs from booking currency",
			zap.String("booking_id", bk.ID().String()),
			zap.String("payment_currency", evt.Currency),
			zap.String("booking_currency", bk.Currency()),
		)
	}
	if evt.Amount != bk.TotalAmount() {
		s.logger.Warn("payment amount differs from booking total",
			zap.String("booking_id", bk.ID().String()),
			zap.Float64("payment_amount", evt.Amount),
			zap.Float64("total_amount", bk.TotalAmount()),
		)
	}
	return s.Transition(ctx, evt.BookingID, bookingDomain.ActionMarkPaid, bookingDomain.SystemActor(),
		fmt.Sprintf("payment %s captured", evt.PaymentID))
}

// GetBooking retrieves a booking visible to the actor.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParticipant(actor) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk, actor)
	return &result, nil
}

// ListBookings returns the bookings visible to the actor: renters see their
// requests, owners the requests for their properties, admins everything.
func (s *BookingService) ListBookings(ctx context.Context, actor bookingDomain.Actor, status *bookingDomain.BookingStatus, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	if status != nil && !status.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid status: %s", *status))
	}
	role := actor.Role
	if actor.IsAdmin() {
		role = bookingDomain.RoleAdmin
	}
	if !role.IsValid() {
		return nil, domain.NewForbiddenError(fmt.Sprintf("unknown role: %s", actor.Role))
	}

	page, limit = normalizePage(page, limit)
	bookings, total, err := s.repo.List(ctx, bookingDomain.ListFilter{
		Role:   role,
		UserID: actor.ID,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk, actor)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// UpdateBooking edits the renter's phone or note while the booking is pending.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor, req UpdateBookingRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := bk.UpdateContact(actor, req.RenterPhone, req.Note); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDetails(ctx, bk); err != nil {
		return nil, err
	}

	s.logger.Info("booking details updated", zap.String("booking_id", bk.ID().String()))
	result := toBookingDTO(bk, actor)
	return &result, nil
}

// DeleteBooking removes a terminal booking (admin only).
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) error {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := bk.CheckDeletable(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bookingID); err != nil {
		return err
	}

	s.logger.Info("booking deleted",
		zap.String("booking_id", bookingID.String()),
		zap.String("status", string(bk.Status())),
	)
	return nil
}

// --- Helpers ---

func parseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError(fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field))
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func toBookingDTO(bk *bookingDomain.Booking, viewer bookingDomain.Actor) BookingDTO {
	var actions []string
	if bk.IsParticipant(viewer) {
		for _, a := range bookingDomain.AvailableActions(bk.Status(), viewer.Role) {
			actions = append(actions, string(a))
		}
	}
	start := bk.StartDate()
	return BookingDTO{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		RenterID:      bk.RenterID(),
		OwnerID:       bk.OwnerID(),
		RenterPhone:   bk.RenterPhone(),
		Status:        string(bk.Status()),
		StartDate:     *formatDate(&start),
		EndDate:       formatDate(bk.EndDate()),
		OpenEnded:     bk.OpenEnded(),
		Note:          bk.Note(),
		MonthlyRate:   bk.MonthlyRate(),
		TotalAmount:   bk.TotalAmount(),
		Currency:      bk.Currency(),
		StatusReason:  bk.StatusReason(),
		ApprovedAt:    bk.ApprovedAt(),
		DeclinedAt:    bk.DeclinedAt(),
		PaidAt:        bk.PaidAt(),
		CompletedAt:   bk.CompletedAt(),
		CancelledAt:   bk.CancelledAt(),
		Actions:       actions,
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

var statusEventTypes = map[bookingDomain.BookingStatus]string{
	bookingDomain.StatusApproved:  events.BookingApproved,
	bookingDomain.StatusDeclined:  events.BookingDeclined,
	bookingDomain.StatusCancelled: events.BookingCancelled,
	bookingDomain.StatusPaid:      events.BookingPaid,
	bookingDomain.StatusCompleted: events.BookingCompleted,
}

func (s *BookingService) publishBookingRequested(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.BookingRequestedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		RenterID:      bk.RenterID(),
		OwnerID:       bk.OwnerID(),
		StartDate:     bk.StartDate(),
		EndDate:       bk.EndDate(),
		OpenEnded:     bk.OpenEnded(),
		TotalAmount:   bk.TotalAmount(),
		Currency:      bk.Currency(),
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingRequested, bk.ID().String(), evt)
}

func (s *BookingService) publishStatusChanged(ctx context.Context, bk *bookingDomain.Booking, action bookingDomain.Action, from bookingDomain.BookingStatus, actor bookingDomain.Actor, reason string) {
	eventType, ok := statusEventTypes[bk.Status()]
	if !ok {
		return
	}
	evt := events.BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PropertyID:    bk.PropertyID(),
		RenterID:      bk.RenterID(),
		OwnerID:       bk.OwnerID(),
		Action:        string(action),
		FromStatus:    string(from),
		ToStatus:      string(bk.Status()),
		ActorID:       actor.ID,
		ActorRole:     string(actor.Role),
		Reason:        reason,
		TotalAmount:   bk.TotalAmount(),
		Currency:      bk.Currency(),
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, eventType, bk.ID().String(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent.WithSubject(key)); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
