package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/domain"
	"tourbackend/internal/http/middleware"
	"tourbackend/internal/utils"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	var (
		validation domain.ValidationError
		capacity   domain.CapacityExceededError
	)
	switch {
	case errors.As(err, &validation):
		var details any
		if validation.Field != "" {
			details = gin.H{validation.Field: []string{validation.Error()}}
		}
		respondError(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), details)
	case domain.IsAuthentication(err):
		respondError(c, http.StatusUnauthorized, "unauthenticated", err.Error(), nil)
	case domain.IsAuthorization(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.As(err, &capacity):
		respondError(c, http.StatusBadRequest, "insufficient_slots", err.Error(), gin.H{"available_slots": capacity.Available})
	case domain.IsWindowClosed(err):
		respondError(c, http.StatusForbidden, "cancellation_window_closed", err.Error(), nil)
	case domain.IsConcurrencyConflict(err):
		respondError(c, http.StatusConflict, "concurrency_conflict", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		utils.LogEvent(middleware.GetRequestID(c), "http", "internal_error", err.Error())
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
