package notifications

import (
	"net/http"

	"bookameal/internal/auth"
	"bookameal/internal/common"
	"bookameal/internal/pagination"

	"github.com/gin-gonic/gin"
)

// Handler serves the caller's notifications
type Handler struct {
	dispatcher *Dispatcher
	limits     pagination.Limits
}

func NewHandler(dispatcher *Dispatcher, limits pagination.Limits) *Handler {
	return &Handler{dispatcher: dispatcher, limits: limits}
}

// List
// GET /notifications?unread=true
func (h *Handler) List(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	res, err := h.dispatcher.ListNotifications(c.Request.Context(), caller, c.Query("unread") == "true", common.PageParams(c, h.limits))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, res)
}

// MarkRead
// POST /notifications/read
func (h *Handler) MarkRead(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req MarkReadRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	n, err := h.dispatcher.MarkRead(c.Request.Context(), caller, req.IDs)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, gin.H{"updated": n})
}

// Broadcast sends a message to every customer
// POST /notifications/broadcast
func (h *Handler) Broadcast(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req BroadcastRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	n, err := h.dispatcher.NotifyAllCustomers(c.Request.Context(), caller, req.Message)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusCreated, gin.H{"notified": n})
}
