package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"liliapp-bi-service/internal/store"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

// Health handles the health check endpoint
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "liliapp-bi-service",
	})
}

// Ready handles the readiness check endpoint. It touches the document
// store so a broken credential shows up here instead of on first use.
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := h.store.ListDocumentIDs(c.Request.Context(), "categories"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "liliapp-bi-service",
	})
}
