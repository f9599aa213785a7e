package revenue

import (
	"net/http"

	"bookameal/internal/apperr"
	"bookameal/internal/auth"
	"bookameal/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler serves the revenue dashboard
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetDaily
// GET /revenue/daily?date=YYYY-MM-DD
func (h *Handler) GetDaily(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		common.RespondError(c, apperr.Validation("date is required"))
		return
	}
	d, err := h.svc.Daily(c.Request.Context(), caller, date)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, d)
}

// GetTotal
// GET /revenue/total
func (h *Handler) GetTotal(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	t, err := h.svc.TotalRevenue(c.Request.Context(), caller)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, t)
}

// GetRange
// GET /revenue?from=&to=
func (h *Handler) GetRange(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	days, err := h.svc.RevenueRange(c.Request.Context(), caller, c.Query("from"), c.Query("to"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, days)
}
