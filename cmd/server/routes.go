package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/kanbanio/taskboard/internal/middleware"
	"github.com/kanbanio/taskboard/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for credential and token endpoints
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "taskboard"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			if os.Getenv("DISABLE_REGISTRATION") == "" {
				auth.POST("/register", svc.authHandler.Register)
			}
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/:id", svc.projectHandler.Get)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)

			// Members
			protected.GET("/projects/:id/members", svc.memberHandler.List)
			protected.PUT("/projects/:id/members/:memberId", svc.memberHandler.ChangeRole)
			protected.DELETE("/projects/:id/members/:memberId", svc.memberHandler.Remove)

			// Invitations
			protected.POST("/projects/:id/invitations", svc.invitationHandler.Create)
			protected.GET("/projects/:id/invitations", svc.invitationHandler.List)
			protected.DELETE("/invitations/:id", svc.invitationHandler.Revoke)
			protected.POST("/invitations/accept", authLimiter.Middleware(), svc.invitationHandler.Accept)

			// Columns
			protected.GET("/projects/:id/columns", svc.columnHandler.List)
			protected.POST("/projects/:id/columns", svc.columnHandler.Create)
			protected.PUT("/projects/:id/columns/:columnId", svc.columnHandler.Update)
			protected.PUT("/projects/:id/columns/:columnId/position", svc.columnHandler.Reorder)
			protected.DELETE("/projects/:id/columns/:columnId", svc.columnHandler.Delete)

			// Issues
			protected.GET("/projects/:id/issues", svc.issueHandler.List)
			protected.GET("/projects/:id/issues/:issueId", svc.issueHandler.Get)
			protected.POST("/projects/:id/issues", svc.issueHandler.Create)
			protected.PUT("/projects/:id/issues/:issueId", svc.issueHandler.Update)
			protected.PUT("/projects/:id/issues/:issueId/move", svc.issueHandler.Move)
			protected.DELETE("/projects/:id/issues/:issueId", svc.issueHandler.Delete)
		}

		// Admin only routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Users
			admin.GET("/users", svc.userHandler.List)
			admin.PUT("/users/:id", svc.userHandler.Update)
			admin.DELETE("/users/:id", svc.userHandler.Delete)

			// System Logs
			admin.GET("/logs", svc.systemHandler.ListLogs)
			admin.GET("/logs/modules", svc.systemHandler.ListLogModules)
			admin.POST("/logs/cleanup", svc.systemHandler.CleanupLogs)

			// System Config
			admin.GET("/config/email", svc.systemHandler.GetEmailConfig)
			admin.PUT("/config/email", svc.systemHandler.UpdateEmailConfig)
			admin.GET("/config/ldap", svc.systemHandler.GetLDAPConfig)
			admin.PUT("/config/ldap", svc.systemHandler.UpdateLDAPConfig)
			admin.POST("/config/ldap/test", svc.systemHandler.TestLDAP)
		}
	}
}
