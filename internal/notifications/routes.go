package notifications

import (
	"bookameal/internal/access"
	"bookameal/internal/auth"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	n := rg.Group("/notifications")
	n.Use(authMiddleware.RequireToken())
	{
		n.GET("", h.List)
		n.POST("/read", h.MarkRead)
		n.POST("/broadcast", authMiddleware.RequireRole(access.Staff...), h.Broadcast)
	}
}
