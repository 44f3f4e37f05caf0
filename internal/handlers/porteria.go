package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tickbol/internal/middleware"
	"tickbol/internal/models"
)

// Porteria handlers

// ValidateTicket - POST /api/porteria/validate
// First scan marks a ticket validated, second marks it used. Anything else
// is a conflict.
func (h *Handlers) ValidateTicket(c *gin.Context) {
	staffID, ok := middleware.StaffIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.ValidateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.services.Porteria.Validate(c.Request.Context(), staffID, &req)
	if err != nil {
		slog.Warn("Ticket validation rejected", "error", err, "code", req.Code, "staff_id", staffID)
		respondError(c, err)
		return
	}

	message := "Ticket validated"
	if ticket.Status == models.TicketUsed {
		message = "Ticket used, entry granted"
	}

	c.JSON(http.StatusOK, models.ValidateTicketResponse{
		Ticket:  *ticket,
		Message: message,
	})
}

// ListValidations - GET /api/porteria/validations?ticket_id=
func (h *Handlers) ListValidations(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Query("ticket_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id is required"})
		return
	}

	validations, err := h.services.Porteria.Validations(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, validations)
}
