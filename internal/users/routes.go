package users

import (
	"bookameal/internal/access"
	"bookameal/internal/auth"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	users := rg.Group("/users")
	{
		users.POST("", authMiddleware.OptionalToken(), h.Register)
		users.POST("/password-reset", authMiddleware.RateLimitByIP(), h.RequestPasswordReset)
		users.POST("/reset-password/:token", authMiddleware.RateLimitByIP(), h.ResetPassword)

		protected := users.Group("")
		protected.Use(authMiddleware.RequireToken())
		{
			protected.GET("", authMiddleware.RequireRole(access.AdminOnly...), h.List)
			protected.GET("/:id", h.Get)
			protected.PATCH("/:id", h.Update)
			protected.DELETE("/:id", h.Delete)
			protected.PUT("/:id/role", authMiddleware.RequireRole(access.AdminOnly...), h.SetRole)
		}
	}
}
