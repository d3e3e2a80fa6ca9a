package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/events"
)

type bookingFixture struct {
	svc       *BookingService
	repo      *fakeBookingRepo
	props     *fakePropertyRepo
	publisher *fakePublisher
	recorder  *fakeRecorder
	property  *propertyDomain.Property
	renter    bookingDomain.Actor
	owner     bookingDomain.Actor
	admin     bookingDomain.Actor
}

func newBookingFixture(t *testing.T, monthlyRate float64) *bookingFixture {
	t.Helper()
	ownerID := uuid.New()
	prop, err := propertyDomain.NewProperty(ownerID, propertyDomain.Details{
		Title:        "Loft",
		PropertyType: propertyDomain.TypeApartment,
		Address:      "1 Main St",
		City:         "Springfield",
		MonthlyRate:  monthlyRate,
		Currency:     "USD",
	})
	require.NoError(t, err)
	require.NoError(t, prop.Approve())

	props := newFakePropertyRepo()
	require.NoError(t, props.Save(context.Background(), prop))

	f := &bookingFixture{
		repo:      newFakeBookingRepo(),
		props:     props,
		publisher: &fakePublisher{},
		recorder:  newFakeRecorder(),
		property:  prop,
		renter:    bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleRenter},
		owner:     bookingDomain.Actor{ID: ownerID, Role: bookingDomain.RoleOwner},
		admin:     bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleAdmin},
	}
	f.svc = NewBookingService(f.repo, props, bookingDomain.NewMonthlyProrationStrategy(), f.publisher, f.recorder, zap.NewNop())
	return f
}

func (f *bookingFixture) request(start string, end *string) CreateBookingRequest {
	return CreateBookingRequest{
		PropertyID:  f.property.ID(),
		RenterPhone: "+1 555 010 2030",
		StartDate:   start,
		EndDate:     end,
		Note:        "quiet tenant",
	}
}

func (f *bookingFixture) create(t *testing.T) *BookingDTO {
	t.Helper()
	end := "2024-01-11"
	dto, err := f.svc.CreateBooking(context.Background(), f.renter, f.request("2024-01-01", &end))
	require.NoError(t, err)
	return dto
}

func strPtr(s string) *string { return &s }

func TestCreateBooking_FixedRangeEstimate(t *testing.T) {
	f := newBookingFixture(t, 12000)

	dto := f.create(t)

	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, 4000.0, dto.TotalAmount)
	assert.Equal(t, 12000.0, dto.MonthlyRate)
	assert.Equal(t, "USD", dto.Currency)
	assert.Equal(t, f.owner.ID, dto.OwnerID)
	assert.Equal(t, "2024-01-01", dto.StartDate)
	require.NotNil(t, dto.EndDate)
	assert.Equal(t, "2024-01-11", *dto.EndDate)
	assert.Equal(t, []string{"cancel"}, dto.Actions)
	assert.Equal(t, []string{events.BookingRequested}, f.publisher.types())
}

func TestCreateBooking_OpenEndedStoresMonthlyRate(t *testing.T) {
	f := newBookingFixture(t, 9000)
	req := f.request("2024-03-01", nil)
	req.OpenEnded = true

	dto, err := f.svc.CreateBooking(context.Background(), f.renter, req)
	require.NoError(t, err)

	assert.True(t, dto.OpenEnded)
	assert.Nil(t, dto.EndDate)
	assert.Equal(t, 9000.0, dto.TotalAmount)

	stored, err := f.repo.FindByID(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, stored.TotalAmount())
	assert.True(t, stored.OpenEnded())
}

func TestCreateBooking_Rejections(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.owner, f.request("2024-01-01", strPtr("2024-01-11")))
	assert.True(t, domain.IsForbidden(err), "owner role: %v", err)

	_, err = f.svc.CreateBooking(ctx, f.renter, f.request("01/02/2024", strPtr("2024-01-11")))
	assert.True(t, domain.IsValidation(err), "bad date: %v", err)

	_, err = f.svc.CreateBooking(ctx, f.renter, f.request("2024-01-11", strPtr("2024-01-01")))
	assert.True(t, domain.IsValidation(err), "reversed range: %v", err)

	_, err = f.svc.CreateBooking(ctx, f.renter, f.request("2024-01-01", nil))
	assert.True(t, domain.IsValidation(err), "missing end date: %v", err)

	missing := f.request("2024-01-01", strPtr("2024-01-11"))
	missing.PropertyID = uuid.New()
	_, err = f.svc.CreateBooking(ctx, f.renter, missing)
	assert.True(t, domain.IsNotFound(err), "unknown property: %v", err)

	selfBooking := bookingDomain.Actor{ID: f.owner.ID, Role: bookingDomain.RoleRenter}
	_, err = f.svc.CreateBooking(ctx, selfBooking, f.request("2024-01-01", strPtr("2024-01-11")))
	assert.True(t, domain.IsValidation(err), "own property: %v", err)

	require.NoError(t, f.property.Archive())
	require.NoError(t, f.props.Update(ctx, f.property))
	_, err = f.svc.CreateBooking(ctx, f.renter, f.request("2024-01-01", strPtr("2024-01-11")))
	assert.True(t, domain.IsInvalidState(err), "archived property: %v", err)

	assert.Empty(t, f.publisher.types())
}

func TestTransition_FullLifecycle(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	dto, err := f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.owner, "")
	require.NoError(t, err)
	assert.Equal(t, "approved", dto.Status)
	assert.NotNil(t, dto.ApprovedAt)

	dto, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionMarkPaid, f.owner, "")
	require.NoError(t, err)
	assert.Equal(t, "paid", dto.Status)

	dto, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionComplete, f.admin, "")
	require.NoError(t, err)
	assert.Equal(t, "completed", dto.Status)
	assert.Equal(t, 4000.0, dto.TotalAmount)

	_, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionCancel, f.renter, "")
	assert.True(t, domain.IsInvalidTransition(err), "got %v", err)
	assert.Equal(t, bookingDomain.StatusCompleted, f.repo.status(bk.ID))

	assert.Equal(t, []string{
		events.BookingRequested,
		events.BookingApproved,
		events.BookingPaid,
		events.BookingCompleted,
	}, f.publisher.types())
}

func TestTransition_RenterCancelThenAdminDelete(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()

	approvedBooking := f.create(t)
	_, err := f.svc.Transition(ctx, approvedBooking.ID, bookingDomain.ActionApprove, f.owner, "")
	require.NoError(t, err)

	dto, err := f.svc.Transition(ctx, approvedBooking.ID, bookingDomain.ActionCancel, f.renter, "found another place")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", dto.Status)
	assert.Equal(t, "found another place", dto.StatusReason)

	require.NoError(t, f.svc.DeleteBooking(ctx, approvedBooking.ID, f.admin))
	_, err = f.repo.FindByID(ctx, approvedBooking.ID)
	assert.True(t, domain.IsNotFound(err))

	pending := f.create(t)
	err = f.svc.DeleteBooking(ctx, pending.ID, f.admin)
	assert.True(t, domain.IsInvalidState(err), "got %v", err)

	err = f.svc.DeleteBooking(ctx, pending.ID, f.owner)
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestTransition_RoleAndOwnershipEnforcement(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	_, err := f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.renter, "")
	assert.True(t, domain.IsForbidden(err), "renter approve: %v", err)

	otherOwner := bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleOwner}
	_, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, otherOwner, "")
	assert.True(t, domain.IsForbidden(err), "foreign owner: %v", err)

	otherRenter := bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleRenter}
	_, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionCancel, otherRenter, "")
	assert.True(t, domain.IsForbidden(err), "foreign renter: %v", err)

	assert.Equal(t, bookingDomain.StatusPending, f.repo.status(bk.ID))
	assert.Equal(t, 3, f.recorder.count("approve/rejected")+f.recorder.count("cancel/rejected"))

	_, err = f.svc.Transition(ctx, uuid.New(), bookingDomain.ActionApprove, f.owner, "")
	assert.True(t, domain.IsNotFound(err))
}

func TestTransition_ApproveTwice(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	_, err := f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.owner, "")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.owner, "")
	var transitionErr *domain.InvalidTransitionError
	require.True(t, errors.As(err, &transitionErr), "got %v", err)
	assert.Equal(t, "approved", transitionErr.From)
}

func TestTransition_ConcurrentApproveHasOneWinner(t *testing.T) {
	f := newBookingFixture(t, 12000)
	bk := f.create(t)

	const racers = 16
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		successes int
		failures  []error
		mu        sync.Mutex
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Transition(context.Background(), bk.ID, bookingDomain.ActionApprove, f.owner, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, racers-1)
	for _, err := range failures {
		assert.True(t, domain.IsInvalidTransition(err), "got %v", err)
	}
	assert.Equal(t, bookingDomain.StatusApproved, f.repo.status(bk.ID))
}

// interleavingRepo lets a competing writer change the status between the
// service's read and its conditional write.
type interleavingRepo struct {
	*fakeBookingRepo
	once   sync.Once
	before func()
}

func (r *interleavingRepo) UpdateStatus(ctx context.Context, bk *bookingDomain.Booking, expected bookingDomain.BookingStatus) error {
	r.once.Do(r.before)
	return r.fakeBookingRepo.UpdateStatus(ctx, bk, expected)
}

func TestTransition_LostRaceReportsObservedStatus(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	repo := &interleavingRepo{fakeBookingRepo: f.repo}
	repo.before = func() {
		competitor, err := f.repo.FindByID(ctx, bk.ID)
		require.NoError(t, err)
		require.NoError(t, competitor.Apply(bookingDomain.ActionDecline, f.admin, "duplicate"))
		require.NoError(t, f.repo.UpdateStatus(ctx, competitor, bookingDomain.StatusPending))
	}
	svc := NewBookingService(repo, f.props, bookingDomain.NewMonthlyProrationStrategy(), f.publisher, f.recorder, zap.NewNop())

	_, err := svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.owner, "")
	var transitionErr *domain.InvalidTransitionError
	require.True(t, errors.As(err, &transitionErr), "got %v", err)
	assert.Equal(t, "approve", transitionErr.Action)
	assert.Equal(t, "declined", transitionErr.From)
	assert.Equal(t, bookingDomain.StatusDeclined, f.repo.status(bk.ID))
	assert.Equal(t, 1, f.recorder.count("approve/conflict"))
}

func TestTransition_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newBookingFixture(t, 12000)
	bk := f.create(t)
	f.publisher.err = errPublish

	dto, err := f.svc.Transition(context.Background(), bk.ID, bookingDomain.ActionDecline, f.owner, "not available")
	require.NoError(t, err)
	assert.Equal(t, "declined", dto.Status)
	assert.Equal(t, bookingDomain.StatusDeclined, f.repo.status(bk.ID))
}

func TestApplyPaymentCaptured(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	evt := events.PaymentCapturedEvent{BookingID: bk.ID, PaymentID: uuid.New(), Amount: 4000, Currency: "USD"}
	_, err := f.svc.ApplyPaymentCaptured(ctx, evt)
	assert.True(t, domain.IsInvalidTransition(err), "pending booking: %v", err)

	_, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.owner, "")
	require.NoError(t, err)

	dto, err := f.svc.ApplyPaymentCaptured(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, "paid", dto.Status)

	stored, err := f.repo.FindByID(ctx, bk.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.RoleSystem, stored.LastActorRole())
}

func TestGetBooking_Visibility(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	for _, actor := range []bookingDomain.Actor{f.renter, f.owner, f.admin} {
		dto, err := f.svc.GetBooking(ctx, bk.ID, actor)
		require.NoError(t, err, actor.Role)
		assert.Equal(t, bk.ID, dto.ID)
	}

	dto, err := f.svc.GetBooking(ctx, bk.ID, f.owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"approve", "decline", "cancel"}, dto.Actions)

	stranger := bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleRenter}
	_, err = f.svc.GetBooking(ctx, bk.ID, stranger)
	assert.True(t, domain.IsForbidden(err))
}

func TestListBookings_ScopedByRole(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()

	first := f.create(t)
	f.create(t)

	otherRenter := bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleRenter}
	_, err := f.svc.CreateBooking(ctx, otherRenter, f.request("2024-02-01", strPtr("2024-02-05")))
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, first.ID, bookingDomain.ActionApprove, f.owner, "")
	require.NoError(t, err)

	page, err := f.svc.ListBookings(ctx, f.renter, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)

	page, err = f.svc.ListBookings(ctx, f.owner, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	approved := bookingDomain.StatusApproved
	page, err = f.svc.ListBookings(ctx, f.admin, &approved, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, first.ID, page.Items[0].ID)

	page, err = f.svc.ListBookings(ctx, f.owner, nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages())

	stranger := bookingDomain.Actor{ID: uuid.New(), Role: bookingDomain.RoleOwner}
	page, err = f.svc.ListBookings(ctx, stranger, nil, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	bogus := bookingDomain.BookingStatus("archived")
	_, err = f.svc.ListBookings(ctx, f.admin, &bogus, 1, 20)
	assert.True(t, domain.IsValidation(err))
}

func TestUpdateBooking(t *testing.T) {
	f := newBookingFixture(t, 12000)
	ctx := context.Background()
	bk := f.create(t)

	dto, err := f.svc.UpdateBooking(ctx, bk.ID, f.renter, UpdateBookingRequest{
		RenterPhone: strPtr("+44 20 7946 0958"),
		Note:        strPtr("arriving late"),
	})
	require.NoError(t, err)
	assert.Equal(t, "+44 20 7946 0958", dto.RenterPhone)
	assert.Equal(t, "arriving late", dto.Note)
	assert.Equal(t, 4000.0, dto.TotalAmount)

	_, err = f.svc.UpdateBooking(ctx, bk.ID, f.owner, UpdateBookingRequest{Note: strPtr("x")})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.UpdateBooking(ctx, bk.ID, f.renter, UpdateBookingRequest{RenterPhone: strPtr("12")})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Transition(ctx, bk.ID, bookingDomain.ActionApprove, f.owner, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateBooking(ctx, bk.ID, f.renter, UpdateBookingRequest{Note: strPtr("too late")})
	assert.True(t, domain.IsInvalidState(err))
}
