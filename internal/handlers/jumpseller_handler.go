package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"liliapp-bi-service/internal/clients/jumpseller"
	"liliapp-bi-service/internal/models"
)

// JumpsellerHandler proxies the upstream commerce API for the dashboard:
// paginated listings, counts and NDJSON streaming exports.
type JumpsellerHandler struct {
	client *jumpseller.Client
}

// NewJumpsellerHandler creates a new Jumpseller proxy handler
func NewJumpsellerHandler(client *jumpseller.Client) *JumpsellerHandler {
	return &JumpsellerHandler{client: client}
}

func intQuery(c *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil || v < 1 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// Orders lists one page of upstream orders.
func (h *JumpsellerHandler) Orders(c *gin.Context) {
	status := c.DefaultQuery("status", "paid")
	limit := intQuery(c, "limit", 20, 100)
	page := intQuery(c, "page", 1, 0)

	orders, err := h.client.GetOrders(c.Request.Context(), page, limit, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Products lists one page of upstream products.
func (h *JumpsellerHandler) Products(c *gin.Context) {
	status := c.DefaultQuery("status", "available")
	limit := intQuery(c, "limit", 20, 100)
	page := intQuery(c, "page", 1, 0)

	products, err := h.client.GetProducts(c.Request.Context(), page, limit, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Categories lists one page of upstream categories.
func (h *JumpsellerHandler) Categories(c *gin.Context) {
	limit := intQuery(c, "limit", 50, 100)
	page := intQuery(c, "page", 1, 0)

	categories, err := h.client.GetCategories(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

type categoryCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID *int64 `json:"parent_id"`
}

// CreateCategory creates a category upstream.
func (h *JumpsellerHandler) CreateCategory(c *gin.Context) {
	var req categoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := h.client.CreateCategory(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

type categoryUpdateRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateCategory renames a category upstream.
func (h *JumpsellerHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req categoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := h.client.UpdateCategory(c.Request.Context(), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category upstream.
func (h *JumpsellerHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.client.DeleteCategory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// UpdateCustomer updates customer fields upstream.
func (h *JumpsellerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	customer, err := h.client.UpdateCustomer(c.Request.Context(), id, fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer upstream.
func (h *JumpsellerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.client.DeleteCustomer(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Counts returns the upstream totals per entity.
func (h *JumpsellerHandler) Counts(c *gin.Context) {
	status := c.DefaultQuery("status", "")

	orders, err := h.client.CountOrders(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}
	products, err := h.client.CountProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	customers, err := h.client.CountCustomers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"products":  products,
		"customers": customers,
	})
}

// StreamOrders writes every upstream order as one NDJSON line, flushing
// page by page so the export starts immediately.
func (h *JumpsellerHandler) StreamOrders(c *gin.Context) {
	status := c.DefaultQuery("status", "paid")
	h.stream(c, func(write func(interface{}) error) error {
		return h.client.StreamOrders(c.Request.Context(), status, func(o models.RawOrder) error {
			return write(o)
		})
	})
}

// StreamProducts writes every upstream product as one NDJSON line.
func (h *JumpsellerHandler) StreamProducts(c *gin.Context) {
	status := c.DefaultQuery("status", "available")
	h.stream(c, func(write func(interface{}) error) error {
		return h.client.StreamProducts(c.Request.Context(), status, func(p models.RawProduct) error {
			return write(p)
		})
	})
}

// StreamCategories writes every upstream category as one NDJSON line.
func (h *JumpsellerHandler) StreamCategories(c *gin.Context) {
	h.stream(c, func(write func(interface{}) error) error {
		return h.client.StreamCategories(c.Request.Context(), func(cat models.RawCategory) error {
			return write(cat)
		})
	})
}

func (h *JumpsellerHandler) stream(c *gin.Context, run func(write func(interface{}) error) error) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	flusher, _ := c.Writer.(http.Flusher)

	write := func(v interface{}) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if err := run(write); err != nil {
		// headers are already out; the truncated stream is the signal
		_ = c.Error(err)
	}
}
