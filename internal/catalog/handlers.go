package catalog

import (
	"net/http"
	"strconv"

	"bookameal/internal/apperr"
	"bookameal/internal/auth"
	"bookameal/internal/common"
	"bookameal/internal/pagination"

	"github.com/gin-gonic/gin"
)

// Handler serves meals and menus
type Handler struct {
	svc    *Service
	limits pagination.Limits
}

func NewHandler(svc *Service, limits pagination.Limits) *Handler {
	return &Handler{svc: svc, limits: limits}
}

// PostMeal
// POST /meals
func (h *Handler) PostMeal(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req CreateMealRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	m, err := h.svc.CreateMeal(c.Request.Context(), caller, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusCreated, m)
}

// GetMeals lists meals, optionally ?catererId=
// GET /meals
func (h *Handler) GetMeals(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var catererID int64
	if raw := c.Query("catererId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			common.RespondError(c, apperr.Validation("invalid catererId %q", raw))
			return
		}
		catererID = id
	}
	res, err := h.svc.ListMeals(c.Request.Context(), caller, catererID, common.PageParams(c, h.limits))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, res)
}

// GetMeal
// GET /meals/:id
func (h *Handler) GetMeal(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	m, err := h.svc.GetMeal(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, m)
}

// PatchMeal
// PATCH /meals/:id
func (h *Handler) PatchMeal(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	var patch MealPatch
	if err := common.BindJSON(c, &patch); err != nil {
		common.RespondError(c, err)
		return
	}
	m, err := h.svc.UpdateMeal(c.Request.Context(), caller, id, patch)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, m)
}

// DeleteMeal
// DELETE /meals/:id
func (h *Handler) DeleteMeal(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if err := h.svc.DeleteMeal(c.Request.Context(), caller, id); err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, gin.H{"message": "meal deleted"})
}

// PutMenu publishes the menu for a date
// PUT /menus/:date
func (h *Handler) PutMenu(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req PublishMenuRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	menu, err := h.svc.PublishMenu(c.Request.Context(), caller, c.Param("date"), req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, menu)
}

// GetMenu
// GET /menus/:date
func (h *Handler) GetMenu(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	menu, err := h.svc.GetMenu(c.Request.Context(), caller, c.Param("date"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, menu)
}

// GetMenus lists menus in ?from=&to=
// GET /menus
func (h *Handler) GetMenus(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	menus, err := h.svc.ListMenus(c.Request.Context(), caller, c.Query("from"), c.Query("to"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, menus)
}

//   Book-A-Meal API. Backend for caterers publishing daily menus and customers ordering from them.
//   API Copyright (C) 2025 The Book-A-Meal Authors
//       This program is free software: you can redistribute it and/or modify
//       it under the terms of the GNU General Public License as published by
//       the Free Software Foundation, either version 3 of the License, or
//       (at your option) any later version.

//       This program is distributed in the hope that it will be useful,
//       but WITHOUT ANY WARRANTY; without even the implied warranty of
//       MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//       GNU General Public License for more details.

//       You should have received a copy of the GNU General Public License
//       along with this program.  If not, see <https://www.gnu.org/licenses/>.
