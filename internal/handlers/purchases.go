package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tickbol/internal/middleware"
	"tickbol/internal/models"
)

// Purchases handlers

// CreatePurchase - POST /api/purchases
func (h *Handlers) CreatePurchase(c *gin.Context) {
	var req models.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Purchases.Create(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to create purchase", "error", err, "event_id", req.EventID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListPurchases - GET /api/purchases?status=
func (h *Handlers) ListPurchases(c *gin.Context) {
	var status *models.PurchaseStatus
	if raw := c.Query("status"); raw != "" {
		s := models.PurchaseStatus(raw)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		status = &s
	}

	purchases, err := h.services.Purchases.List(c.Request.Context(), status)
	if err != nil {
		slog.Error("Failed to list purchases", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchases)
}

// GetPurchase - GET /api/purchases/:id
func (h *Handlers) GetPurchase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}

	purchase, err := h.services.Purchases.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchase)
}

// SubmitPayment - PATCH /api/purchases/submitPayment
func (h *Handlers) SubmitPayment(c *gin.Context) {
	var req models.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.SubmitPayment(c.Request.Context(), &req); err != nil {
		slog.Error("Failed to submit payment", "error", err, "purchase_id", req.PurchaseID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(models.PurchasePaymentSubmitted)})
}

// VerifyPayment - PATCH /api/purchases/verifyPayment
func (h *Handlers) VerifyPayment(c *gin.Context) {
	staffID, ok := middleware.StaffIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.VerifyPayment(c.Request.Context(), staffID, &req); err != nil {
		slog.Error("Failed to verify payment", "error", err, "purchase_id", req.PurchaseID, "staff_id", staffID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(models.PurchasePaymentVerified)})
}

// CompletePurchase - PATCH /api/purchases/complete
func (h *Handlers) CompletePurchase(c *gin.Context) {
	staffID, ok := middleware.StaffIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CompletePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.Complete(c.Request.Context(), staffID, &req); err != nil {
		slog.Error("Failed to complete purchase", "error", err, "purchase_id", req.PurchaseID, "staff_id", staffID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(models.PurchaseCompleted)})
}

// CancelPurchase - PATCH /api/purchases/cancel
func (h *Handlers) CancelPurchase(c *gin.Context) {
	staffID, ok := middleware.StaffIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CancelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Purchases.Cancel(c.Request.Context(), staffID, &req); err != nil {
		slog.Error("Failed to cancel purchase", "error", err, "purchase_id", req.PurchaseID, "staff_id", staffID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(models.PurchaseCancelled)})
}

// GetNotificationStatus - GET /api/notifications/:purchaseId
func (h *Handlers) GetNotificationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("purchaseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase id"})
		return
	}

	status, err := h.services.Notifications.Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
