package users

import (
	"net/http"

	"bookameal/internal/access"
	"bookameal/internal/auth"
	"bookameal/internal/common"
	"bookameal/internal/pagination"

	"github.com/gin-gonic/gin"
)

// Handler serves the account endpoints
type Handler struct {
	svc    *Service
	limits pagination.Limits
}

func NewHandler(svc *Service, limits pagination.Limits) *Handler {
	return &Handler{svc: svc, limits: limits}
}

// Register
// POST /users
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	var caller *access.Identity
	if id, ok := auth.GetIdentity(c); ok {
		caller = &id
	}

	u, err := h.svc.Register(c.Request.Context(), caller, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusCreated, u)
}

// List
// GET /users
func (h *Handler) List(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	res, err := h.svc.List(c.Request.Context(), caller, common.PageParams(c, h.limits))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, res)
}

// Get
// GET /users/:id
func (h *Handler) Get(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	u, err := h.svc.Get(c.Request.Context(), caller, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, u)
}

// Update
// PATCH /users/:id
func (h *Handler) Update(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	var patch ProfilePatch
	if err := common.BindJSON(c, &patch); err != nil {
		common.RespondError(c, err)
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), caller, id, patch)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, u)
}

// Delete
// DELETE /users/:id
func (h *Handler) Delete(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), caller, id); err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, gin.H{"message": "user deleted"})
}

// SetRole
// PUT /users/:id/role
func (h *Handler) SetRole(c *gin.Context) {
	caller, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, err)
		return
	}
	var req SetRoleRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	u, err := h.svc.SetRole(c.Request.Context(), caller, id, req.Role)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, u)
}

// RequestPasswordReset always answers 202 for a well-formed email
// POST /users/password-reset
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusAccepted, gin.H{"message": "if the account exists, a reset link has been sent"})
}

// ResetPassword
// POST /users/reset-password/:token
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, gin.H{"message": "password updated"})
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
