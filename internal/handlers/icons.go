package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awidyan/homeboard/internal/audit"
	"github.com/awidyan/homeboard/internal/icons"
)

// IconHandler serves the icon proxy cache.
type IconHandler struct {
	cache *icons.Cache
	audit *audit.Service
}

// NewIconHandler creates a new IconHandler instance.
func NewIconHandler(cache *icons.Cache, auditSvc *audit.Service) *IconHandler {
	return &IconHandler{cache: cache, audit: auditSvc}
}

// Proxy resolves an icon URL to a cached copy or a fallback. Fetch
// failures still answer 200 so the dashboard can hot-link the original.
// GET /api/icon?url=U
func (h *IconHandler) Proxy(c *gin.Context) {
	rawURL := c.Query("url")

	result, err := h.cache.Proxy(rawURL)
	if err != nil {
		if errors.Is(err, icons.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute URL"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CacheInfo returns the count and total size of cached icons.
// GET /api/icons/cache
func (h *IconHandler) CacheInfo(c *gin.Context) {
	info, err := h.cache.CacheInfo()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, info)
}

// ClearCache deletes all cached icons.
// DELETE /api/icons/cache
func (h *IconHandler) ClearCache(c *gin.Context) {
	deleted, err := h.cache.ClearCache()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit.Log(audit.ActionClearIconCache, c.ClientIP(), map[string]interface{}{
		"deleted": deleted,
	})

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
