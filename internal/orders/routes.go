package orders

import (
	"bookameal/internal/access"
	"bookameal/internal/auth"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	staff := authMiddleware.RequireRole(access.Staff...)

	o := rg.Group("/orders")
	o.Use(authMiddleware.RequireToken())
	{
		o.POST("", authMiddleware.RequireRole(access.Customers...), h.PostOrder)
		o.GET("/mine", h.GetMine)
		o.GET("", staff, h.GetOrders)
		o.GET("/:id", h.GetOrder)
		o.PATCH("/:id", staff, h.PatchOrder)
		o.POST("/:id/complete", staff, h.Complete)
		o.POST("/:id/pay", staff, h.Pay)
		o.POST("/:id/cancel", h.Cancel)
	}
}
