package auth

import (
	"context"
	"database/sql"
	"time"

	"bookameal/internal/access"
)

// Repository provides access to the api_tokens table
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new auth repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertToken stores a token hash for a user
func (r *Repository) InsertToken(ctx context.Context, userID int64, tokenHash string, expiresAt, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO api_tokens (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, tokenHash, expiresAt.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTokenByHash returns the token and its owner's current role, or nil
func (r *Repository) GetTokenByHash(ctx context.Context, tokenHash string) (*Token, error) {
	var t Token
	var revokedAt sql.NullTime
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.token_hash, t.expires_at, t.revoked_at, t.created_at, u.role
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = ?
	`, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt, &role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		ts := revokedAt.Time
		t.RevokedAt = &ts
	}
	t.Role = access.Role(role)
	return &t, nil
}

// RevokeToken marks a live token revoked and reports whether one was
func (r *Repository) RevokeToken(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_tokens SET revoked_at = ?
		WHERE token_hash = ? AND revoked_at IS NULL
	`, now.UTC(), tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeUserTokens revokes every live token of a user
func (r *Repository) RevokeUserTokens(ctx context.Context, userID int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE api_tokens SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL
	`, now.UTC(), userID)
	return err
}

// DeleteExpiredTokens removes tokens that expired before now
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM api_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
