package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	"github.com/rentnest/service-rental/pkg/auth"
	"github.com/rentnest/service-rental/pkg/middleware"
	"github.com/rentnest/service-rental/pkg/response"
)

var actorRoles = map[auth.Role]bookingDomain.ActorRole{
	auth.RoleRenter: bookingDomain.RoleRenter,
	auth.RoleOwner:  bookingDomain.RoleOwner,
	auth.RoleAdmin:  bookingDomain.RoleAdmin,
}

// currentActor builds the booking actor for the authenticated caller. It
// writes 401 and returns false when the context carries no identity.
func currentActor(c *gin.Context) (bookingDomain.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return bookingDomain.Actor{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return bookingDomain.Actor{}, false
	}
	actorRole, ok := actorRoles[role]
	if !ok {
		response.Forbidden(c, "unknown role")
		return bookingDomain.Actor{}, false
	}
	return bookingDomain.Actor{ID: userID, Role: actorRole}, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
	}
	return userID, ok
}

// uuidParam parses a path parameter, answering 400 when it is not a UUID.
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination extracts page and limit query parameters. Out-of-range
// values are normalized by the services.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

func parseStatusQuery(c *gin.Context) (*bookingDomain.BookingStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status, err := bookingDomain.ParseBookingStatus(raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
