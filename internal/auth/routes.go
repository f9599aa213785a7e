package auth

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the login routes
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, middleware *Middleware) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", middleware.RateLimitByIP(), handler.Login)

		protected := auth.Group("")
		protected.Use(middleware.RequireToken())
		{
			protected.GET("/me", handler.Me)
			protected.POST("/logout", handler.Logout)
		}
	}
}
