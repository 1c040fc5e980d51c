package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portal/internal/apperr"
	"portal/internal/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Entity  string `json:"entity,omitempty"`
	ID      int64  `json:"id,omitempty"`
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError maps a service error onto the response. Internal errors are
// logged and replaced with a generic message.
func writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	body := errorBody{Code: code, Message: err.Error()}
	if e, ok := apperr.As(err); ok {
		body.Field, body.Entity, body.ID = e.Field, e.Entity, e.ID
	}
	if status == http.StatusInternalServerError {
		log := logger.With("http")
		log.Error().Err(err).Str("route", c.FullPath()).Str("request_id", c.GetString(requestIDKey)).Msg("request failed")
		body.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name, name+" must be a positive integer")
	}
	return id, nil
}

// optionalInt parses an optional integer from a path or query value.
func optionalInt(raw, field string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation(field, field+" must be an integer")
	}
	return &v, nil
}

// bindJSON decodes the request body, reporting malformed input as a validation error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("body", "malformed request body: "+err.Error())
	}
	return nil
}
