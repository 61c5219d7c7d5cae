package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awidyan/homeboard/internal/audit"
	"github.com/awidyan/homeboard/internal/backup"
	"github.com/awidyan/homeboard/internal/models"
	"github.com/awidyan/homeboard/internal/store"
)

// BackupHandler serves snapshot listing, creation, restore, and deletion.
type BackupHandler struct {
	manager *backup.Manager
	store   *store.Store
	audit   *audit.Service
}

// NewBackupHandler creates a new BackupHandler instance.
func NewBackupHandler(manager *backup.Manager, st *store.Store, auditSvc *audit.Service) *BackupHandler {
	return &BackupHandler{manager: manager, store: st, audit: auditSvc}
}

// List returns snapshot summaries, newest first.
// GET /api/backups
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.manager.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"backups": backups})
}

// Create snapshots the live document, optionally under a user-supplied name.
// POST /api/backups
func (h *BackupHandler) Create(c *gin.Context) {
	var req models.CreateBackupRequest
	// Body is optional; a bare POST means a timestamp-named backup.
	_ = c.ShouldBindJSON(&req)

	doc, _, err := h.store.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot snapshot: " + err.Error()})
		return
	}

	filename, err := h.manager.Create(doc, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit.Log(audit.ActionCreateBackup, c.ClientIP(), map[string]interface{}{
		"filename": filename,
	})

	c.JSON(http.StatusOK, gin.H{"filename": filename})
}

// Restore replaces the live document with a snapshot's payload.
// POST /api/backups/:filename/restore
func (h *BackupHandler) Restore(c *gin.Context) {
	filename := c.Param("filename")

	result, err := h.manager.Restore(filename)
	if err != nil {
		switch {
		case errors.Is(err, backup.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, backup.ErrPathTraversal), errors.Is(err, backup.ErrInvalidBackup):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	h.audit.Log(audit.ActionRestoreBackup, c.ClientIP(), map[string]interface{}{
		"filename":      filename,
		"service_count": result.ServicesCount,
		"safety_backup": result.SafetyBackup,
	})

	c.JSON(http.StatusOK, result)
}

// Delete removes a snapshot; deleting an absent one succeeds.
// DELETE /api/backups/:filename
func (h *BackupHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")

	if err := h.manager.Delete(filename); err != nil {
		if errors.Is(err, backup.ErrPathTraversal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit.Log(audit.ActionDeleteBackup, c.ClientIP(), map[string]interface{}{
		"filename": filename,
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}
