package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AllowedOrigins))

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Public auth routes, rate limited per client IP
		public := api.Group("", svc.limiter.Middleware())
		{
			public.POST("/register", svc.authHandler.Register)
			public.POST("/login", svc.authHandler.Login)
			public.POST("/refresh-token", svc.authHandler.RefreshToken)
			public.POST("/forgot-password", svc.authHandler.ForgotPassword)
			public.POST("/reset-password", svc.authHandler.ResetPassword)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.guard), middleware.AuditLog())
		{
			protected.POST("/logout", svc.authHandler.Logout)
			protected.POST("/change-password", svc.authHandler.ChangePassword)

			// Users
			protected.GET("/user/me", svc.authHandler.Me)
			protected.PUT("/user/me", svc.userHandler.UpdateMe)
			protected.GET("/user", svc.userHandler.List)
			protected.GET("/user/:id", svc.userHandler.Get)

			// Bookmarks
			protected.GET("/user-bookmark", svc.bookmarkHandler.List)
			protected.GET("/user-bookmark/:id", svc.bookmarkHandler.Get)
			protected.POST("/user-bookmark", svc.bookmarkHandler.Create)
			protected.PUT("/user-bookmark/:id", svc.bookmarkHandler.Update)
			protected.DELETE("/user-bookmark/:id", svc.bookmarkHandler.Delete)

			// Notes
			protected.GET("/user-note", svc.noteHandler.List)
			protected.GET("/user-note/:id", svc.noteHandler.Get)
			protected.POST("/user-note", svc.noteHandler.Create)
			protected.PUT("/user-note/:id", svc.noteHandler.Update)
			protected.DELETE("/user-note/:id", svc.noteHandler.Delete)

			// Notifications
			protected.GET("/user-notification", svc.notificationHandler.List)
			protected.GET("/user-notification/:id", svc.notificationHandler.Get)
			protected.POST("/user-notification", svc.notificationHandler.Create)
			protected.DELETE("/user-notification/:id", svc.notificationHandler.Delete)

			admin := protected.Group("", middleware.AdminRequired())
			{
				admin.PUT("/user/:id", svc.userHandler.Update)
				admin.GET("/system-logs", svc.systemLogHandler.List)
			}
		}
	}
}
