package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"liliapp-bi-service/internal/services"
)

// AuditHandler exposes the upstream-vs-store comparison endpoints.
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id: " + c.Param("id")})
		return 0, false
	}
	return id, true
}

// Order joins the upstream order with its derived documents.
func (h *AuditHandler) Order(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.audit.AuditOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Service joins the upstream product with the stored catalog tree.
func (h *AuditHandler) Service(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.audit.AuditServiceRecord(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FirestoreHealth returns collection counts and user-tree completeness.
func (h *AuditHandler) FirestoreHealth(c *gin.Context) {
	summary, err := h.audit.FirestoreHealth(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
