package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSubmission), errors.Is(err, domain.ErrInvalidEvent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error response. Client errors echo the error text;
// server errors are logged and replaced by msg.
func abortWithError(c *gin.Context, logger *slog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg,
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
		return
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}
