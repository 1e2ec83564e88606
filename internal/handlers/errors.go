package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/storage"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		notFound   *NotFoundError
		validation *ValidationError
		code       int
		message    string
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
		message = "resource not found"
	case errors.As(err, &validation):
		code = http.StatusBadRequest
		message = "validation error"
	default:
		code = http.StatusInternalServerError
		message = "internal server error"
	}

	if code >= http.StatusInternalServerError {
		logger.Error(message, "error", err, "code", code)
	} else {
		logger.Debug(message, "error", err, "code", code)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Message: message,
	})
}
