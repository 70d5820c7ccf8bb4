package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"liliapp-bi-service/internal/services"
)

// ETLHandler triggers pipeline runs.
type ETLHandler struct {
	etl *services.ETLService
}

// NewETLHandler creates a new ETL handler
func NewETLHandler(etl *services.ETLService) *ETLHandler {
	return &ETLHandler{etl: etl}
}

type runRequest struct {
	TestRun  bool   `json:"test_run"`
	Strategy string `json:"strategy"`
	Status   string `json:"status"`
}

// RunOrders executes the orders pipeline and returns its report.
func (h *ETLHandler) RunOrders(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.etl.RunOrdersETL(c.Request.Context(), services.RunOptions{
		TestRun:  req.TestRun,
		Strategy: services.Strategy(req.Strategy),
		Status:   req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RunProducts executes the products pipeline and returns its report.
func (h *ETLHandler) RunProducts(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.etl.RunProductsETL(c.Request.Context(), services.RunOptions{
		TestRun:  req.TestRun,
		Strategy: services.Strategy(req.Strategy),
		Status:   req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
