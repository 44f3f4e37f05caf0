package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tickbol/internal/middleware"
	"tickbol/internal/models"
)

// Tickets handlers

// IssueTickets - POST /api/tickets/issue
// Idempotent: re-issuing for the same purchase returns the existing tickets.
func (h *Handlers) IssueTickets(c *gin.Context) {
	staffID, ok := middleware.StaffIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.IssueTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := h.services.Tickets.IssueFor(c.Request.Context(), staffID, &req)
	if err != nil {
		slog.Error("Failed to issue tickets", "error", err, "purchase_id", req.PurchaseID, "staff_id", staffID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tickets)
}

// GetTicket - GET /api/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.services.Tickets.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ListTickets - GET /api/tickets?purchase_id=
func (h *Handlers) ListTickets(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Query("purchase_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purchase_id is required"})
		return
	}

	tickets, err := h.services.Tickets.ListByPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}
