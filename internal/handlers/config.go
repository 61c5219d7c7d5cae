// Package handlers provides the HTTP API for the dashboard server.
package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/awidyan/homeboard/internal/audit"
	"github.com/awidyan/homeboard/internal/backup"
	"github.com/awidyan/homeboard/internal/models"
	"github.com/awidyan/homeboard/internal/store"
)

// ConfigHandler serves the dashboard document: read, write, change polling,
// and import/export.
type ConfigHandler struct {
	store   *store.Store
	backups *backup.Manager
	audit   *audit.Service
}

// NewConfigHandler creates a new ConfigHandler instance.
func NewConfigHandler(st *store.Store, backups *backup.Manager, auditSvc *audit.Service) *ConfigHandler {
	return &ConfigHandler{store: st, backups: backups, audit: auditSvc}
}

// Get returns the current document and its modification marker.
// GET /api/config
func (h *ConfigHandler) Get(c *gin.Context) {
	doc, marker, err := h.store.Load()
	if err != nil {
		if errors.Is(err, store.ErrCorrupted) {
			// The corrupt file stays on disk for recovery; the client still
			// gets a usable dashboard.
			log.Printf("stored dashboard is corrupted, serving defaults: %v", err)
			c.JSON(http.StatusOK, gin.H{
				"config":              models.DefaultDashboard(),
				"modification_marker": marker,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"config":              doc,
		"modification_marker": marker,
	})
}

// Save validates and persists a full document, snapshotting the previous
// committed state first when the backup policy calls for it.
// PUT /api/config
func (h *ConfigHandler) Save(c *gin.Context) {
	var doc models.Dashboard
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config payload: " + err.Error()})
		return
	}
	if doc.Services == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "config must contain a services list"})
		return
	}

	// Backup captures the previous committed state, never the incoming one.
	if prev, _, err := h.store.Load(); err == nil {
		if filename := h.backups.MaybeBackup(prev, &doc); filename != "" {
			log.Printf("automatic backup created: %s", filename)
		}
	}

	marker, err := h.store.Save(&doc)
	if err != nil {
		if errors.Is(err, store.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit.Log(audit.ActionSaveConfig, c.ClientIP(), map[string]interface{}{
		"service_count": len(doc.Services),
	})

	c.JSON(http.StatusOK, gin.H{"modification_marker": marker})
}

// Poll reports whether the document changed since the given marker. Pure
// read: never advances the marker or triggers backups.
// GET /api/config/changes?since=M
func (h *ConfigHandler) Poll(c *gin.Context) {
	since, err := strconv.ParseInt(c.Query("since"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an integer marker"})
		return
	}

	changed, marker, err := h.store.CheckChanged(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changed":             changed,
		"modification_marker": marker,
	})
}

// Export streams the live document as a download. Unlike Get, a corrupted
// store is an error here: a download of defaults would look like the user's
// data and mask the corruption.
// GET /api/config/export
func (h *ConfigHandler) Export(c *gin.Context) {
	doc, _, err := h.store.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=dashboard.json")
	c.JSON(http.StatusOK, doc)
}

// Import replaces the live document with an uploaded one, validated the
// same way a restore is and preceded by a safety backup.
// POST /api/config/import
func (h *ConfigHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read import payload"})
		return
	}

	doc, err := backup.ParsePayload(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid import payload: services list is missing or malformed"})
		return
	}

	safety := ""
	if current, _, err := h.store.Load(); err == nil {
		if name, err := h.backups.Create(current, "pre-import"); err != nil {
			log.Printf("pre-import safety backup failed: %v", err)
		} else {
			safety = name
		}
	}

	marker, err := h.store.Save(doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit.Log(audit.ActionImportConfig, c.ClientIP(), map[string]interface{}{
		"service_count": len(doc.Services),
		"safety_backup": safety,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"modification_marker": marker,
		"safety_backup":       safety,
	})
}
