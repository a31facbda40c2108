package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymsched/internal/apperr"
	"gymsched/internal/logger"
	"gymsched/internal/validation"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

type ValidationErrorResponse struct {
	Error   string                  `json:"error" example:"validation failed"`
	Details []validation.FieldError `json:"details"`
}

// UnavailableResponse is the explicit failure payload for views that could
// not be built. It is never mixed with partial data.
type UnavailableResponse struct {
	Status string `json:"status" example:"unavailable"`
	Error  string `json:"error" example:"fetch sessions: connection refused"`
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
		)
	}
	if status == http.StatusInternalServerError {
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func RespondValidation(c *gin.Context, errs []validation.FieldError) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Error:   "validation failed",
		Details: errs,
	})
}

func RespondUnavailable(c *gin.Context, err error) {
	logger.WithError(err).Warn("view unavailable", "path", c.FullPath())
	c.JSON(http.StatusServiceUnavailable, UnavailableResponse{Status: "unavailable", Error: err.Error()})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
