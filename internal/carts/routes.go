package carts

import (
	"bookameal/internal/access"
	"bookameal/internal/auth"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	c := rg.Group("/cart")
	c.Use(authMiddleware.RequireToken(), authMiddleware.RequireRole(access.Customers...))
	{
		c.GET("", h.GetCart)
		c.DELETE("", h.DeleteCart)
		c.POST("/items", h.PostItem)
		c.DELETE("/items/:mealId", h.DeleteItem)
	}
}
