package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentnest/service-rental/internal/application"
	"github.com/rentnest/service-rental/pkg/auth"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/middleware"
	"github.com/rentnest/service-rental/pkg/response"
)

// PropertyService is the catalog surface used by the HTTP layer.
type PropertyService interface {
	CreateProperty(ctx context.Context, ownerID uuid.UUID, req application.CreatePropertyRequest) (*application.PropertyDTO, error)
	UpdateProperty(ctx context.Context, ownerID, propertyID uuid.UUID, req application.UpdatePropertyRequest) (*application.PropertyDTO, error)
	ArchiveProperty(ctx context.Context, ownerID, propertyID uuid.UUID) error
	ListOwnerProperties(ctx context.Context, ownerID uuid.UUID, page, limit int) (*domain.PaginatedResult[application.PropertyDTO], error)
	GetProperty(ctx context.Context, propertyID, viewerID uuid.UUID, viewerIsAdmin bool) (*application.PropertyDTO, error)
	SearchProperties(ctx context.Context, q application.SearchPropertiesQuery) (*domain.PaginatedResult[application.PropertyDTO], error)
}

// ImageService is the property image surface used by the HTTP layer.
type ImageService interface {
	UploadImage(ctx context.Context, ownerID, propertyID uuid.UUID, r io.Reader) (*application.ImageDTO, error)
	ListImages(ctx context.Context, propertyID, viewerID uuid.UUID, viewerIsAdmin bool) ([]application.ImageDTO, error)
	SetCover(ctx context.Context, ownerID, propertyID, imageID uuid.UUID) (*application.ImageDTO, error)
	DeleteImage(ctx context.Context, ownerID, propertyID, imageID uuid.UUID) error
}

// PropertyHandler handles the public catalog and the owner listing routes.
type PropertyHandler struct {
	properties PropertyService
	images     ImageService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(properties PropertyService, images ImageService) *PropertyHandler {
	return &PropertyHandler{properties: properties, images: images}
}

// RegisterRoutes registers the public and owner property routes.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	public := r.Group("/api/v1/properties")
	public.Use(middleware.OptionalAuthMiddleware(jwtManager))
	{
		public.GET("", h.SearchProperties)
		public.GET("/:id", h.GetProperty)
		public.GET("/:id/images", h.ListImages)
	}

	owner := r.Group("/api/v1/owner/properties")
	owner.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleOwner))
	{
		owner.POST("", h.CreateProperty)
		owner.GET("", h.ListOwnerProperties)
		owner.PUT("/:id", h.UpdateProperty)
		owner.DELETE("/:id", h.ArchiveProperty)
		owner.POST("/:id/images", h.UploadImage)
		owner.PUT("/:id/images/:imageId/cover", h.SetCover)
		owner.DELETE("/:id/images/:imageId", h.DeleteImage)
	}
}

// SearchProperties handles GET /api/v1/properties.
func (h *PropertyHandler) SearchProperties(c *gin.Context) {
	var q application.SearchPropertiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.properties.SearchProperties(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetProperty handles GET /api/v1/properties/:id. Owners and admins also see
// listings that are not yet approved.
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}

	viewerID, _ := middleware.GetUserID(c)
	role, _ := middleware.GetUserRole(c)

	result, err := h.properties.GetProperty(c.Request.Context(), propertyID, viewerID, role == auth.RoleAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListImages handles GET /api/v1/properties/:id/images, with the same
// visibility as GetProperty.
func (h *PropertyHandler) ListImages(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}

	viewerID, _ := middleware.GetUserID(c)
	role, _ := middleware.GetUserRole(c)

	result, err := h.images.ListImages(c.Request.Context(), propertyID, viewerID, role == auth.RoleAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateProperty handles POST /api/v1/owner/properties.
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req application.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.properties.CreateProperty(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListOwnerProperties handles GET /api/v1/owner/properties.
func (h *PropertyHandler) ListOwnerProperties(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, limit := parsePagination(c)
	result, err := h.properties.ListOwnerProperties(c.Request.Context(), ownerID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// UpdateProperty handles PUT /api/v1/owner/properties/:id.
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req application.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.properties.UpdateProperty(c.Request.Context(), ownerID, propertyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ArchiveProperty handles DELETE /api/v1/owner/properties/:id.
func (h *PropertyHandler) ArchiveProperty(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.properties.ArchiveProperty(c.Request.Context(), ownerID, propertyID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UploadImage handles POST /api/v1/owner/properties/:id/images (multipart field "file").
func (h *PropertyHandler) UploadImage(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "multipart field \"file\" is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "could not read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.images.UploadImage(c.Request.Context(), ownerID, propertyID, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// SetCover handles PUT /api/v1/owner/properties/:id/images/:imageId/cover.
func (h *PropertyHandler) SetCover(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}
	imageID, ok := uuidParam(c, "imageId", "image")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.images.SetCover(c.Request.Context(), ownerID, propertyID, imageID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteImage handles DELETE /api/v1/owner/properties/:id/images/:imageId.
func (h *PropertyHandler) DeleteImage(c *gin.Context) {
	propertyID, ok := uuidParam(c, "id", "property")
	if !ok {
		return
	}
	imageID, ok := uuidParam(c, "imageId", "image")
	if !ok {
		return
	}
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.images.DeleteImage(c.Request.Context(), ownerID, propertyID, imageID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
