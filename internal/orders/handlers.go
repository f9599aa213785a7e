package orders

import (
	"context"
	"net/http"

	"bookameal/internal/access"
	"bookameal/internal/auth"
	"bookameal/internal/common"
	"bookameal/internal/pagination"

	"github.com/gin-gonic/gin"
)

// Handler serves the order endpoints
type Handler struct {
	svc    *Service
	limits pagination.Limits
}

func NewHandler(svc *Service, limits pagination.Limits) *Handler {
	return &Handler{svc: svc, limits: limits}
}

// PostOrder
// POST /orders
func (h *Handler) PostOrder(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	o, err := h.svc.PlaceOrder(c.Request.Context(), caller, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusCreated, o)
}

// GetMine lists the caller's orders
// GET /orders/mine
func (h *Handler) GetMine(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	res, err := h.svc.ListOrdersForUser(c.Request.Context(), caller, caller.UserID, common.PageParams(c, h.limits))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, res)
}

// GetOrders lists every order
// GET /orders
func (h *Handler) GetOrders(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	res, err := h.svc.ListAllOrders(c.Request.Context(), caller, common.PageParams(c, h.limits))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, res)
}

// withOrder resolves the caller and the :id param, runs fn and writes the
// resulting order.
func (h *Handler) withOrder(c *gin.Context, fn func(ctx context.Context, caller access.Identity, id int64) (*Order, error)) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	o, err := fn(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, o)
}

// GetOrder
// GET /orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	h.withOrder(c, h.svc.GetOrder)
}

// PatchOrder changes meal or quantity
// PATCH /orders/:id
func (h *Handler) PatchOrder(c *gin.Context) {
	var req ChangeOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	h.withOrder(c, func(ctx context.Context, caller access.Identity, id int64) (*Order, error) {
		return h.svc.ChangeOrder(ctx, caller, id, req)
	})
}

// Complete
// POST /orders/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	h.withOrder(c, h.svc.CompleteOrder)
}

// Cancel
// POST /orders/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.withOrder(c, h.svc.CancelOrder)
}

// Pay
// POST /orders/:id/pay
func (h *Handler) Pay(c *gin.Context) {
	h.withOrder(c, h.svc.MarkPaid)
}
