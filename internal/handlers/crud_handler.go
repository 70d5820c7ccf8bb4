package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/services"
)

// CRUDHandler exposes the admin document CRUD surface and the bulk
// cleanup endpoints.
type CRUDHandler struct {
	crud        *services.CRUDService
	maintenance *services.MaintenanceService
	logger      *logrus.Entry
}

// NewCRUDHandler creates a new CRUD handler
func NewCRUDHandler(crud *services.CRUDService, maintenance *services.MaintenanceService, logger *logrus.Logger) *CRUDHandler {
	return &CRUDHandler{crud: crud, maintenance: maintenance, logger: logger.WithField("component", "crud_handler")}
}

// collectionPath resolves the store path for a request. Nested route
// templates carry a "%s" placeholder filled with the :id path parameter;
// the document itself is then addressed by :childId.
func collectionPath(c *gin.Context, template string) string {
	if strings.Contains(template, "%") {
		return fmt.Sprintf(template, c.Param("id"))
	}
	return template
}

func documentID(c *gin.Context, template string) string {
	if strings.Contains(template, "%") {
		return c.Param("childId")
	}
	return c.Param("id")
}

// List handles GET on a collection.
func (h *CRUDHandler) List(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := h.crud.List(c.Request.Context(), collectionPath(c, template))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// Get handles GET on a single document.
func (h *CRUDHandler) Get(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := h.crud.Get(c.Request.Context(), collectionPath(c, template), documentID(c, template))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// Create handles POST on a collection.
func (h *CRUDHandler) Create(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := h.crud.Create(c.Request.Context(), collectionPath(c, template), body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "success", "id": id})
	}
}

// Update handles PUT on a single document.
func (h *CRUDHandler) Update(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id := documentID(c, template)
		if err := h.crud.Update(c.Request.Context(), collectionPath(c, template), id, body); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "id": id})
	}
}

// Delete handles DELETE on a single document.
func (h *CRUDHandler) Delete(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := documentID(c, template)
		if err := h.crud.Delete(c.Request.Context(), collectionPath(c, template), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "id": id})
	}
}

// CleanServiceSubcollections starts a background purge of every
// variants and subcategories subcollection. The request returns
// immediately; the purge runs to completion server-side.
func (h *CRUDHandler) CleanServiceSubcollections(c *gin.Context) {
	go func() {
		report, err := h.maintenance.CleanServiceSubcollections(context.Background())
		if err != nil {
			h.logger.WithError(err).Error("subcollection cleanup failed")
			return
		}
		h.logger.WithField("deleted", report.Deleted).Info("subcollection cleanup done")
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "message": "subcollection cleanup started"})
}

// CleanCollection starts a background purge of one top-level collection.
// The target is validated up front so an unknown name is rejected here
// instead of vanishing into the background run.
func (h *CRUDHandler) CleanCollection(c *gin.Context) {
	collection := c.Param("collection")
	if err := h.maintenance.CheckCleanTarget(collection); err != nil {
		writeError(c, err)
		return
	}
	go func() {
		report, err := h.maintenance.CleanCollection(context.Background(), collection)
		if err != nil {
			h.logger.WithError(err).WithField("collection", collection).Error("collection cleanup failed")
			return
		}
		h.logger.WithFields(logrus.Fields{
			"collection": collection,
			"deleted":    report.Deleted,
		}).Info("collection cleanup done")
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "message": "cleanup of " + collection + " started"})
}
