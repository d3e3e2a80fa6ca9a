package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentnest/service-rental/pkg/domain"
)

// ErrorBody is the error part of a failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the JSON shape of every response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes a page of results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent writes 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes 200 with a page of items.
func Paginated[T any](c *gin.Context, items []T, total int64, page, limit int) {
	if items == nil {
		items = []T{}
	}
	p := domain.NewPaginatedResult(items, total, page, limit)
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Pagination: &Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: p.TotalPages(),
		},
	})
}

// BadRequest writes 400 with a validation message.
func BadRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, "validation_error", msg)
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, msg string) {
	abort(c, http.StatusUnauthorized, "unauthorized", msg)
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, msg string) {
	abort(c, http.StatusForbidden, "forbidden", msg)
}

// Error maps a domain error to its HTTP status. Unknown errors become 500
// and are attached to the context for the request logger.
func Error(c *gin.Context, err error) {
	var (
		validationErr   *domain.ValidationError
		notFoundErr     *domain.NotFoundError
		forbiddenErr    *domain.ForbiddenError
		unauthorizedErr *domain.UnauthorizedError
		transitionErr   *domain.InvalidTransitionError
		stateErr        *domain.InvalidStateError
		conflictErr     *domain.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		abort(c, http.StatusBadRequest, "validation_error", validationErr.Message)
	case errors.As(err, &notFoundErr):
		abort(c, http.StatusNotFound, "not_found", notFoundErr.Error())
	case errors.As(err, &forbiddenErr):
		abort(c, http.StatusForbidden, "forbidden", forbiddenErr.Message)
	case errors.As(err, &unauthorizedErr):
		abort(c, http.StatusUnauthorized, "unauthorized", unauthorizedErr.Message)
	case errors.As(err, &transitionErr):
		abort(c, http.StatusConflict, "invalid_transition", transitionErr.Error())
	case errors.As(err, &stateErr):
		abort(c, http.StatusConflict, "invalid_state", stateErr.Error())
	case errors.As(err, &conflictErr):
		abort(c, http.StatusConflict, "conflict", conflictErr.Message)
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: msg},
	})
}
