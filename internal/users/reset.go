package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookameal/internal/apperr"
	"bookameal/internal/auth"
	"bookameal/internal/database"
	"bookameal/internal/events"
)

// DefaultResetTTL is how long a password reset token stays usable
const DefaultResetTTL = time.Hour

var errInvalidReset = apperr.Validation("invalid or expired reset token")

// RequestPasswordReset issues a single-use reset token for email and hands
// it to the mail worker through a TypePasswordReset event. Unknown addresses
// succeed silently so the endpoint does not reveal which addresses have
// accounts.
// Issuing a new token invalidates any earlier pending one.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil {
		return translate(err, "get user")
	}
	if u == nil {
		s.log.Debug("password reset requested for unknown email")
		return nil
	}

	raw, hash, err := auth.GenerateToken()
	if err != nil {
		return apperr.Internal(fmt.Errorf("generate reset token: %w", err))
	}
	now := s.now().UTC()
	expires := now.Add(s.resetTTL)

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeletePasswordResets(ctx, u.ID); err != nil {
			return err
		}
		return repo.InsertPasswordReset(ctx, u.ID, hash, expires, now)
	})
	if err != nil {
		return translate(err, "store password reset")
	}

	s.log.WithField("user_id", u.ID).Info("password reset requested")
	events.Fire(s.publisher, s.log, events.TypePasswordReset, events.PasswordReset{
		UserID:    u.ID,
		Email:     u.Email,
		Token:     raw,
		ExpiresAt: expires,
	})
	return nil
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
// The token is consumed in the same transaction that writes the password,
// and every session of the user is revoked afterwards.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return errInvalidReset
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	var userID int64
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		id, ok, err := repo.ConsumePasswordReset(ctx, auth.HashToken(token), now)
		if err != nil {
			return err
		}
		if !ok {
			return errInvalidReset
		}
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return errInvalidReset
		}
		u.PasswordHash = hash
		u.UpdatedAt = now
		userID = id
		return repo.Update(ctx, u)
	})
	if err != nil {
		return translate(err, "reset password")
	}

	s.log.WithField("user_id", userID).Info("password reset")
	return s.revokeSessions(ctx, userID)
}
