package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookameal/internal/access"
	"bookameal/internal/common"

	"github.com/gin-gonic/gin"
)

const (
	// Context keys
	ContextKeyIdentity = "auth_identity"
	ContextKeyToken    = "auth_token"

	// Headers
	HeaderAuthorization  = "Authorization"
	HeaderRateLimitLimit = "X-RateLimit-Limit"
	HeaderRetryAfter     = "Retry-After"
)

// TokenValidator resolves a bearer token to an identity
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (access.Identity, error)
}

// Middleware provides authentication and authorization middleware
type Middleware struct {
	tokens  TokenValidator
	limiter *RateLimiter
}

// NewMiddleware creates a new middleware instance. limiter may be nil.
func NewMiddleware(tokens TokenValidator, limiter *RateLimiter) *Middleware {
	return &Middleware{tokens: tokens, limiter: limiter}
}

// RequireToken validates the bearer token, applies the per-user rate limit
// and stores the caller's identity in the context.
func (m *Middleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(HeaderAuthorization)
		if authHeader == "" {
			common.RespondStatus(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			common.RespondStatus(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		rawToken := strings.TrimSpace(parts[1])

		identity, err := m.tokens.Validate(c.Request.Context(), rawToken)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenRevoked) {
				common.RespondStatus(c, http.StatusUnauthorized, err.Error())
				return
			}
			_ = c.Error(err)
			common.RespondStatus(c, http.StatusInternalServerError, "failed to validate token")
			return
		}

		if !m.allow(c, fmt.Sprintf("user:%d", identity.UserID)) {
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyToken, rawToken)
		c.Next()
	}
}

// OptionalToken resolves a bearer token when one is sent and otherwise lets
// the request through anonymously. A bad token is still rejected.
func (m *Middleware) OptionalToken() gin.HandlerFunc {
	required := m.RequireToken()
	return func(c *gin.Context) {
		if c.GetHeader(HeaderAuthorization) == "" {
			if !m.allow(c, clientKey(c.ClientIP())) {
				return
			}
			c.Next()
			return
		}
		required(c)
	}
}

// RateLimitByIP limits unauthenticated routes per client address
func (m *Middleware) RateLimitByIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.allow(c, clientKey(c.ClientIP())) {
			return
		}
		c.Next()
	}
}

func (m *Middleware) allow(c *gin.Context, key string) bool {
	if m.limiter == nil || m.limiter.Allow(key) {
		return true
	}
	c.Header(HeaderRateLimitLimit, fmt.Sprintf("%g", m.limiter.Limit()))
	c.Header(HeaderRetryAfter, "1")
	common.RespondStatus(c, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

// RequireRole returns a middleware that checks the caller's role is in roles
func (m *Middleware) RequireRole(roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			common.RespondStatus(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		if err := access.Require(identity, roles...); err != nil {
			common.RespondError(c, err)
			return
		}
		c.Next()
	}
}

// GetIdentity retrieves the authenticated caller from the context
func GetIdentity(c *gin.Context) (access.Identity, bool) {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return access.Identity{}, false
	}
	identity, ok := val.(access.Identity)
	return identity, ok
}

// GetRawToken retrieves the bearer token the request was authenticated with
func GetRawToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}

// MustIdentity returns the caller or writes a 401 and returns false
func MustIdentity(c *gin.Context) (access.Identity, bool) {
	identity, ok := GetIdentity(c)
	if !ok {
		common.RespondStatus(c, http.StatusUnauthorized, "not authenticated")
	}
	return identity, ok
}
