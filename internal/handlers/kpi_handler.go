package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"liliapp-bi-service/internal/services"
)

const dateParamLayout = "2006-01-02"

// KPIHandler exposes the dashboard KPI endpoints.
type KPIHandler struct {
	kpis *services.KPIService
}

// NewKPIHandler creates a new KPI handler
func NewKPIHandler(kpis *services.KPIService) *KPIHandler {
	return &KPIHandler{kpis: kpis}
}

// parseDateRange reads start_date/end_date query params. The start is
// anchored at midnight, the end at the last instant of its day, so a
// single-day range still covers the whole day.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, ok := parseDateParam(c, "start_date")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := parseEndDate(c)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseDateParam(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required (YYYY-MM-DD)"})
		return time.Time{}, false
	}
	t, err := time.Parse(dateParamLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + raw})
		return time.Time{}, false
	}
	return t, true
}

func parseEndDate(c *gin.Context) (time.Time, bool) {
	end, ok := parseDateParam(c, "end_date")
	if !ok {
		return time.Time{}, false
	}
	return end.Add(24*time.Hour - time.Nanosecond), true
}

// Summary returns the executive summary KPIs.
func (h *KPIHandler) Summary(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	data, err := h.kpis.Summary(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Acquisition returns the acquisition and growth KPIs.
func (h *KPIHandler) Acquisition(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	data, err := h.kpis.Acquisition(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Engagement returns the engagement and conversion KPIs.
func (h *KPIHandler) Engagement(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	data, err := h.kpis.Engagement(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Operations returns the operations and quality KPIs.
func (h *KPIHandler) Operations(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	data, err := h.kpis.Operations(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Retention returns the retention and loyalty KPIs. Only the end of the
// observation window is needed; history before it always counts.
func (h *KPIHandler) Retention(c *gin.Context) {
	end, ok := parseEndDate(c)
	if !ok {
		return
	}
	data, err := h.kpis.Retention(c.Request.Context(), end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Segmentation returns the RFM customer segmentation.
func (h *KPIHandler) Segmentation(c *gin.Context) {
	end, ok := parseEndDate(c)
	if !ok {
		return
	}
	data, err := h.kpis.Segmentation(c.Request.Context(), end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
