package server

import (
	"errors"
	"net/http"

	"github.com/cadreapp/cadre/internal/access"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/cadreapp/cadre/internal/token"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up all routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, orch *notify.Orchestrator, resolver *access.Resolver) {
	router.GET("/healthz", handleHealth(db))

	// The email link is a GET; clients confirming programmatically POST.
	router.GET("/confirm/:token", handleConfirm(db, orch))
	router.POST("/confirm/:token", handleConfirm(db, orch))

	// Decision endpoint for the external handler layer, so it shares this
	// process's permission cache.
	if resolver != nil {
		router.GET("/access/check", handleAccessCheck(resolver))
	}
}

// handleAccessCheck answers "can this stored role perform action on
// resource" for the thin handler layer fronting this service.
func handleAccessCheck(resolver *access.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.Query("role")
		resource := c.Query("resource")
		action := c.Query("action")
		if role == "" || resource == "" || action == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role, resource and action are required"})
			return
		}

		if err := resolver.RequirePermission(role, resource, action); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"allowed": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"allowed": true})
	}
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleConfirm consumes a confirmation token and applies its action.
// The token error strings are user-facing and returned verbatim.
func handleConfirm(db *gorm.DB, orch *notify.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := token.Confirm(db, c.Param("token"))
		if err != nil {
			status := http.StatusNotFound
			switch {
			case errors.Is(err, token.ErrUsed):
				status = http.StatusConflict
			case errors.Is(err, token.ErrExpired):
				status = http.StatusGone
			}
			c.JSON(status, gin.H{"success": false, "error": err.Error()})
			return
		}

		if !token.ExecuteAction(c.Request.Context(), db, orch, data) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Une erreur est survenue",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"type":    string(data.Type),
		})
	}
}
