// Package users owns accounts: registration, profiles, roles and password login.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/auth"
	"bookameal/internal/database"
	"bookameal/internal/events"
	"bookameal/internal/pagination"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 64
)

// TokenRevoker drops every session a user holds
type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID int64) error
}

// Service implements account operations
type Service struct {
	db        *sql.DB
	repo      *Repository
	publisher events.Publisher
	tokens    TokenRevoker
	log       logrus.FieldLogger

	now      func() time.Time
	hashCost int
	resetTTL time.Duration
}

// NewService creates the account service
func NewService(db *sql.DB, publisher events.Publisher, tokens TokenRevoker, log logrus.FieldLogger) *Service {
	return &Service{
		db:        db,
		repo:      NewRepository(db),
		publisher: publisher,
		tokens:    tokens,
		log:       log,
		now:       time.Now,
		hashCost:  bcrypt.DefaultCost,
		resetTTL:  DefaultResetTTL,
	}
}

func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", apperr.Validation("invalid email address %q", s)
	}
	return s, nil
}

func normalizeUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation("username is required")
	}
	if len(s) > MaxUsernameLength {
		return "", apperr.Validation("username must be at most %d characters", MaxUsernameLength)
	}
	return s, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", apperr.Validation("invalid password: %s", err.Error())
	}
	return string(hash), nil
}

func translate(err error, action string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("username or email already exists")
	}
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("user is still referenced by other records")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// Register creates an account. Anonymous callers and non-admins always get
// the customer role; an admin may pick any role. The welcome event is
// published after commit and its failure never fails registration.
func (s *Service) Register(ctx context.Context, caller *access.Identity, req RegisterRequest) (*User, error) {
	role := access.RoleCustomer
	if req.Role != nil && strings.TrimSpace(*req.Role) != "" {
		r, err := access.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if r != access.RoleCustomer {
			if caller == nil {
				return nil, apperr.Forbidden("only an admin can register a %s", r)
			}
			if err := access.Require(*caller, access.AdminOnly...); err != nil {
				return nil, err
			}
		}
		role = r
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, translate(err, "insert user")
	}

	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	events.Fire(s.publisher, s.log, events.TypeUserRegistered, events.UserRegistered{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
	})
	return u, nil
}

// Get returns a user to itself or to an admin
func (s *Service) Get(ctx context.Context, caller access.Identity, id int64) (*User, error) {
	if err := access.RequireSelfOr(caller, id, access.AdminOnly...); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "get user")
	}
	if u == nil {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return u, nil
}

// List returns one page of users (admin only)
func (s *Service) List(ctx context.Context, caller access.Identity, p pagination.Params) (pagination.Result[User], error) {
	if err := access.Require(caller, access.AdminOnly...); err != nil {
		return pagination.Result[User]{}, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return pagination.Result[User]{}, translate(err, "count users")
	}
	w := pagination.Resolve(p, total)
	list, err := s.repo.List(ctx, w.Limit(), w.Offset())
	if err != nil {
		return pagination.Result[User]{}, translate(err, "list users")
	}
	return pagination.NewResult(list, w), nil
}

// UpdateProfile changes the caller's own email, username or password. A
// password change signs the user out everywhere once it commits.
func (s *Service) UpdateProfile(ctx context.Context, caller access.Identity, id int64, patch ProfilePatch) (*User, error) {
	if err := access.RequireSelf(caller, id); err != nil {
		return nil, err
	}

	var updated *User
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user %d not found", id)
		}

		if patch.Email != nil {
			if u.Email, err = normalizeEmail(*patch.Email); err != nil {
				return err
			}
		}
		if patch.Username != nil {
			if u.Username, err = normalizeUsername(*patch.Username); err != nil {
				return err
			}
		}
		if patch.Password != nil {
			if u.PasswordHash, err = s.hashPassword(*patch.Password); err != nil {
				return err
			}
		}
		u.UpdatedAt = s.now().UTC()
		if err := repo.Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, translate(err, "update user")
	}
	if patch.Password != nil {
		if err := s.revokeSessions(ctx, id); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (s *Service) revokeSessions(ctx context.Context, userID int64) error {
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return apperr.Internal(fmt.Errorf("revoke sessions: %w", err))
	}
	s.log.WithField("user_id", userID).Info("sessions revoked after password change")
	return nil
}

// Delete removes the caller's own account with its meals, orders and
// notifications. An account whose meals other orders still point at cannot
// be deleted.
func (s *Service) Delete(ctx context.Context, caller access.Identity, id int64) error {
	if err := access.RequireSelf(caller, id); err != nil {
		return err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user %d not found", id)
		}

		n, err := repo.CountOrdersOnOwnedMeals(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("user owns meals referenced by %d orders", n)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return translate(err, "delete user")
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// SetRole changes a user's role (admin only). The last admin cannot be demoted.
func (s *Service) SetRole(ctx context.Context, caller access.Identity, id int64, role string) (*User, error) {
	if err := access.Require(caller, access.AdminOnly...); err != nil {
		return nil, err
	}
	r, err := access.ParseRole(role)
	if err != nil {
		return nil, err
	}

	var updated *User
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user %d not found", id)
		}
		if u.Role == access.RoleAdmin && r != access.RoleAdmin {
			admins, err := repo.CountByRole(ctx, access.RoleAdmin)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return apperr.Conflict("cannot demote the last admin")
			}
		}
		u.Role = r
		u.UpdatedAt = s.now().UTC()
		if err := repo.Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, translate(err, "set role")
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "role": r}).Info("user role changed")
	return updated, nil
}

// Authenticate checks an email and password pair
func (s *Service) Authenticate(ctx context.Context, email, password string) (access.Identity, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return access.Identity{}, translate(err, "get user")
	}
	if u == nil {
		return access.Identity{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return access.Identity{}, auth.ErrInvalidCredentials
	}
	return access.Identity{UserID: u.ID, Role: u.Role}, nil
}

// EnsureAdmin creates the bootstrap admin, or promotes an existing account
// with that email. It is a no-op when email is empty.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	u, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil {
		return translate(err, "get user")
	}
	if u != nil {
		if u.Role == access.RoleAdmin {
			return nil
		}
		u.Role = access.RoleAdmin
		u.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, u); err != nil {
			return translate(err, "promote admin")
		}
		s.log.WithField("user_id", u.ID).Info("bootstrap admin promoted")
		return nil
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	u = &User{
		Email:        normalized,
		Username:     strings.SplitN(normalized, "@", 2)[0],
		PasswordHash: hash,
		Role:         access.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return translate(err, "create admin")
	}
	s.log.WithField("user_id", u.ID).Info("bootstrap admin created")
	return nil
}
