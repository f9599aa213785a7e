package carts

import (
	"net/http"

	"bookameal/internal/auth"
	"bookameal/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler serves the cart endpoints
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetCart
// GET /cart
func (h *Handler) GetCart(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	cart, err := h.svc.GetCart(c.Request.Context(), caller)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, cart)
}

// PostItem
// POST /cart/items
func (h *Handler) PostItem(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), caller, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusCreated, cart)
}

// DeleteItem
// DELETE /cart/items/:mealId
func (h *Handler) DeleteItem(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	mealID, err := common.ParseIDParam(c, "mealId")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), caller, mealID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, cart)
}

// DeleteCart
// DELETE /cart
func (h *Handler) DeleteCart(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	if err := h.svc.Clear(c.Request.Context(), caller); err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, gin.H{"message": "cart cleared"})
}
