// Package router wires handlers and middleware into the Gin engine.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/awidyan/homeboard/internal/audit"
	"github.com/awidyan/homeboard/internal/backup"
	"github.com/awidyan/homeboard/internal/config"
	"github.com/awidyan/homeboard/internal/handlers"
	"github.com/awidyan/homeboard/internal/icons"
	"github.com/awidyan/homeboard/internal/middleware"
	"github.com/awidyan/homeboard/internal/store"
	"github.com/awidyan/homeboard/internal/version"
	"github.com/awidyan/homeboard/internal/watch"
)

// New builds the Gin engine with all routes mounted under the configured
// path prefix.
func New(cfg *config.Config, st *store.Store, backups *backup.Manager, iconCache *icons.Cache, hub *watch.Hub, auditSvc *audit.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.SecurityHeaders())

	prefix := r.Group(cfg.Server.PathPrefix)

	configHandler := handlers.NewConfigHandler(st, backups, auditSvc)
	backupHandler := handlers.NewBackupHandler(backups, st, auditSvc)
	iconHandler := handlers.NewIconHandler(iconCache, auditSvc)
	watchHandler := handlers.NewWatchHandler(st, hub)
	metricsHandler := handlers.NewMetricsHandler()
	auditHandler := handlers.NewAuditHandler(auditSvc)

	// Cached icons are plain files; gin serves them directly.
	prefix.Static("/icons/cache", iconCache.Dir())

	iconLimiter := middleware.NewRateLimiter(60, time.Minute)

	api := prefix.Group("/api")
	{
		api.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info())
		})

		api.GET("/config", configHandler.Get)
		api.PUT("/config", middleware.DefaultBodyLimit(), configHandler.Save)
		api.GET("/config/changes", configHandler.Poll)
		api.GET("/config/watch", watchHandler.Watch)
		api.GET("/config/export", configHandler.Export)
		api.POST("/config/import", middleware.DefaultBodyLimit(), configHandler.Import)

		api.GET("/backups", backupHandler.List)
		api.POST("/backups", middleware.DefaultBodyLimit(), backupHandler.Create)
		api.POST("/backups/:filename/restore", backupHandler.Restore)
		api.DELETE("/backups/:filename", backupHandler.Delete)

		api.GET("/icon", iconLimiter.Middleware(), iconHandler.Proxy)
		api.GET("/icons/cache", iconHandler.CacheInfo)
		api.DELETE("/icons/cache", iconHandler.ClearCache)

		api.GET("/metrics/system", metricsHandler.GetSystem)
		api.GET("/metrics/docker", metricsHandler.GetDocker)

		api.GET("/audit", auditHandler.List)
	}

	return r
}
