package users

import (
	"time"

	"bookameal/internal/access"
)

// User is an account. PasswordHash never leaves the package in JSON.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Role         access.Role `json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// RegisterRequest is the body of POST /users. Role is honoured only when an
// admin makes the call.
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Role     *string `json:"role"`
}

// ProfilePatch is the body of PATCH /users/:id. Absent fields are untouched.
type ProfilePatch struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// SetRoleRequest is the body of PUT /users/:id/role
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// PasswordResetRequest is the body of POST /users/password-reset
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body of POST /users/reset-password/:token
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
