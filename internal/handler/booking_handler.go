package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentnest/service-rental/internal/application"
	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	"github.com/rentnest/service-rental/pkg/auth"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/middleware"
	"github.com/rentnest/service-rental/pkg/response"
)

// BookingService is the booking use case surface used by the HTTP layer.
// *application.BookingService satisfies it.
type BookingService interface {
	CreateBooking(ctx context.Context, actor bookingDomain.Actor, req application.CreateBookingRequest) (*application.BookingDTO, error)
	Transition(ctx context.Context, bookingID uuid.UUID, action bookingDomain.Action, actor bookingDomain.Actor, reason string) (*application.BookingDTO, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) (*application.BookingDTO, error)
	ListBookings(ctx context.Context, actor bookingDomain.Actor, status *bookingDomain.BookingStatus, page, limit int) (*domain.PaginatedResult[application.BookingDTO], error)
	UpdateBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor, req application.UpdateBookingRequest) (*application.BookingDTO, error)
	DeleteBooking(ctx context.Context, bookingID uuid.UUID, actor bookingDomain.Actor) error
}

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", middleware.RequireRole(auth.RoleRenter), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id", middleware.RequireRole(auth.RoleRenter), h.UpdateBooking)
		bookings.POST("/:id/approve", h.transition(bookingDomain.ActionApprove))
		bookings.POST("/:id/decline", h.transition(bookingDomain.ActionDecline))
		bookings.POST("/:id/cancel", h.transition(bookingDomain.ActionCancel))
		bookings.POST("/:id/mark-paid", h.transition(bookingDomain.ActionMarkPaid))
		bookings.POST("/:id/complete", h.transition(bookingDomain.ActionComplete))
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings. Renters see their own requests,
// owners the requests for their properties, admins everything.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	status, err := parseStatusQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListBookings(c.Request.Context(), actor, status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id", "booking")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateBooking handles PATCH /api/v1/bookings/:id.
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id", "booking")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req application.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateBooking(c.Request.Context(), bookingID, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type transitionBody struct {
	Reason string `json:"reason"`
}

// transition handles POST /api/v1/bookings/:id/<action>. The body is optional.
func (h *BookingHandler) transition(action bookingDomain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := uuidParam(c, "id", "booking")
		if !ok {
			return
		}
		actor, ok := currentActor(c)
		if !ok {
			return
		}

		// The body is optional; an empty one decodes to io.EOF.
		var body transitionBody
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Transition(c.Request.Context(), bookingID, action, actor, body.Reason)
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, result)
	}
}
