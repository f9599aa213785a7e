package auth

import (
	"context"
	"errors"
	"net/http"

	"bookameal/internal/access"
	"bookameal/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials is returned by an Authenticator for a wrong email or password
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticator checks a password login
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (access.Identity, error)
}

// Handler handles authentication endpoints
type Handler struct {
	accounts Authenticator
	tokens   *TokenStore
	log      logrus.FieldLogger
}

// NewHandler creates a new auth handler
func NewHandler(accounts Authenticator, tokens *TokenStore, log logrus.FieldLogger) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, log: log}
}

// Login exchanges email and password for a bearer token
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	identity, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		common.RespondStatus(c, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		common.RespondError(c, err)
		return
	}

	issued, err := h.tokens.Issue(c.Request.Context(), identity.UserID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	h.log.WithField("user_id", identity.UserID).Info("user logged in")
	common.Respond(c, http.StatusOK, gin.H{
		"token":     issued.Token,
		"expiresAt": issued.ExpiresAt,
		"userId":    identity.UserID,
		"role":      identity.Role,
	})
}

// Logout revokes the token used for the request
// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.tokens.Revoke(c.Request.Context(), GetRawToken(c)); err != nil {
		common.RespondError(c, err)
		return
	}
	common.Respond(c, http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me returns the caller's identity
// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	identity, ok := MustIdentity(c)
	if !ok {
		return
	}
	common.Respond(c, http.StatusOK, identity)
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
