package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		services: services,
	}
}

// respondError maps service errors to HTTP status codes. Unknown errors
// become 500s without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrInactive):
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is not active"})
	case errors.Is(err, apperrors.ErrAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket already used"})
	case errors.Is(err, apperrors.ErrCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is cancelled"})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid state transition"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, retry the request"})
	case errors.Is(err, apperrors.ErrCodeExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not generate a unique code"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		slog.Error("Unhandled service error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
