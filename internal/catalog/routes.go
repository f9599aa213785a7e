package catalog

import (
	"bookameal/internal/access"
	"bookameal/internal/auth"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, h *Handler, authMiddleware *auth.Middleware) {
	staff := authMiddleware.RequireRole(access.Staff...)

	meals := rg.Group("/meals")
	meals.Use(authMiddleware.RequireToken())
	{
		meals.GET("", h.GetMeals)
		meals.GET("/:id", h.GetMeal)
		meals.POST("", staff, h.PostMeal)
		meals.PATCH("/:id", staff, h.PatchMeal)
		meals.DELETE("/:id", staff, h.DeleteMeal)
	}

	menus := rg.Group("/menus")
	menus.Use(authMiddleware.RequireToken())
	{
		menus.GET("", h.GetMenus)
		menus.GET("/:date", h.GetMenu)
		menus.PUT("/:date", staff, h.PutMenu)
	}
}
