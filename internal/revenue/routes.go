package revenue

import (
	"bookameal/internal/access"
	"bookameal/internal/auth"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	r := rg.Group("/revenue")
	r.Use(authMiddleware.RequireToken(), authMiddleware.RequireRole(access.Staff...))
	{
		r.GET("", h.GetRange)
		r.GET("/daily", h.GetDaily)
		r.GET("/total", h.GetTotal)
	}
}
