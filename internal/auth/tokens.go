package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookameal/internal/access"

	"github.com/mr-tron/base58"
)

const (
	// TokenPrefix is the prefix for all generated tokens
	TokenPrefix = "bam_"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenStore issues and validates bearer tokens
type TokenStore struct {
	repo *Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewTokenStore creates a token store whose tokens live for ttl
func NewTokenStore(repo *Repository, ttl time.Duration) *TokenStore {
	return &TokenStore{repo: repo, ttl: ttl, now: time.Now}
}

// GenerateToken creates a new random token with the bam_ prefix
// Format: bam_ + Base58(SHA256(random_bytes))
func GenerateToken() (rawToken string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", err
	}

	hash := sha256.Sum256(randomBytes)
	rawToken = TokenPrefix + base58.Encode(hash[:])
	return rawToken, HashToken(rawToken), nil
}

// HashToken is the SHA256 hex digest stored in place of a raw token
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Issue creates a token for userID
func (s *TokenStore) Issue(ctx context.Context, userID int64) (*IssuedToken, error) {
	raw, hash, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl).UTC()
	if _, err := s.repo.InsertToken(ctx, userID, hash, expiresAt, now); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &IssuedToken{Token: raw, ExpiresAt: expiresAt}, nil
}

// Validate resolves a raw token to the identity of its owner. The role is
// read from the user row, so a role change applies to live tokens.
func (s *TokenStore) Validate(ctx context.Context, rawToken string) (access.Identity, error) {
	if !strings.HasPrefix(rawToken, TokenPrefix) {
		return access.Identity{}, ErrInvalidToken
	}

	t, err := s.repo.GetTokenByHash(ctx, HashToken(rawToken))
	if err != nil {
		return access.Identity{}, err
	}
	if t == nil {
		return access.Identity{}, ErrInvalidToken
	}
	if t.RevokedAt != nil {
		return access.Identity{}, ErrTokenRevoked
	}
	if !t.ExpiresAt.After(s.now()) {
		return access.Identity{}, ErrTokenExpired
	}
	return access.Identity{UserID: t.UserID, Role: t.Role}, nil
}

// Revoke invalidates a raw token. Revoking an unknown or already revoked
// token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, rawToken string) error {
	_, err := s.repo.RevokeToken(ctx, HashToken(rawToken), s.now())
	return err
}

// RevokeAll invalidates every token of a user
func (s *TokenStore) RevokeAll(ctx context.Context, userID int64) error {
	return s.repo.RevokeUserTokens(ctx, userID, s.now())
}

// PurgeExpired deletes expired tokens and returns how many went
func (s *TokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredTokens(ctx, s.now())
}
