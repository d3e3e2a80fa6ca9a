package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentnest/service-rental/internal/application"
	"github.com/rentnest/service-rental/pkg/auth"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/middleware"
	"github.com/rentnest/service-rental/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReviewService is the listing review surface used by the admin routes.
type ReviewService interface {
	ListPendingProperties(ctx context.Context, page, limit int) (*domain.PaginatedResult[application.PropertyDTO], error)
	ApproveProperty(ctx context.Context, propertyID uuid.UUID) (*application.PropertyDTO, error)
	RejectProperty(ctx context.Context, propertyID uuid.UUID, note string) (*application.PropertyDTO, error)
}

// ReportService is the reporting surface used by the admin routes.
type ReportService interface {
	GetBookingStats(ctx context.Context) (*application.BookingStatsDTO, error)
	ExportBookings(ctx context.Context, q application.ReportQuery, w io.Writer) error
}

// AdminHandler handles admin HTTP requests for bookings, listing review and reports.
type AdminHandler struct {
	bookings BookingService
	reviews  ReviewService
	reports  ReportService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookings BookingService, reviews ReviewService, reports ReportService) *AdminHandler {
	return &AdminHandler{bookings: bookings, reviews: reviews, reports: reports}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.DELETE("/bookings/:id", h.DeleteBooking)
		admin.GET("/properties/pending", h.ListPendingProperties)
		admin.POST("/properties/:id/approve", h.ApproveProperty)
		admin.POST("/properties/:id/reject", h.RejectProperty)
		admin.GET("/reports/bookings/stats", h.BookingStats)
		admin.GET("/reports/bookings/export", h.ExportBookings)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
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
	result, err := h.bookings.ListBookings(c.Request.Context(), actor, status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// DeleteBooking handles DELETE /api/v1/admin/bookings/:id.
func (h *AdminHandler) DeleteBooking(c *gin.Context) {
	bookingID, ok := uuidParam(c, "id", "booking")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.bookings.DeleteBooking(c.Request.Context(), bookingID, actor); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListPendingProperties handles GET /api/v1/admin/properties/pending.
func (h *AdminHandler) ListPendingProperties(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.reviews.ListPendingProperties(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ApproveProperty handles POST /api/v1/admin/properties/:id/approve.
func (h *AdminHandler) ApproveProperty(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}

	result, err := h.reviews.ApproveProperty(c.Request.Context(), propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type rejectBody struct {
	Note string `json:"note" binding:"required"`
}

// RejectProperty handles POST /api/v1/admin/properties/:id/reject.
func (h *AdminHandler) RejectProperty(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}

	var body rejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reviews.RejectProperty(c.Request.Context(), propertyID, body.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BookingStats handles GET /api/v1/admin/reports/bookings/stats.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.reports.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// ExportBookings handles GET /api/v1/admin/reports/bookings/export. The
// workbook is buffered so a failure can still be answered with JSON.
func (h *AdminHandler) ExportBookings(c *gin.Context) {
	var q application.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportBookings(c.Request.Context(), q, &buf); err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("bookings-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
