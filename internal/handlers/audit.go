package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/awidyan/homeboard/internal/audit"
)

// AuditHandler serves the recorded operation history.
type AuditHandler struct {
	audit *audit.Service
}

// NewAuditHandler creates a new AuditHandler instance.
func NewAuditHandler(auditSvc *audit.Service) *AuditHandler {
	return &AuditHandler{audit: auditSvc}
}

// List returns audit entries newest-first with pagination.
// GET /api/audit?limit=&offset=
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.audit.GetLogs(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
