// Package carts keeps a per-customer cart of meals ahead of ordering.
package carts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/catalog"
	"bookameal/internal/database"
	"bookameal/internal/orders"

	"github.com/sirupsen/logrus"
)

// MaxQuantity bounds one cart line, same as an order line
const MaxQuantity = orders.MaxQuantity

type Service struct {
	db    *sql.DB
	repo  *Repository
	meals *catalog.Repository
	log   logrus.FieldLogger

	now func() time.Time
}

func NewService(db *sql.DB, log logrus.FieldLogger) *Service {
	return &Service{
		db:    db,
		repo:  NewRepository(db),
		meals: catalog.NewRepository(db),
		log:   log,
		now:   time.Now,
	}
}

func translate(err error, action string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("cart references a meal that no longer exists")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

// AddItem puts quantity (default 1) of a meal in the caller's cart, creating
// the cart on first use. Adding a meal that is already in the cart adds to
// its quantity.
func (s *Service) AddItem(ctx context.Context, caller access.Identity, req AddItemRequest) (*Cart, error) {
	if err := access.Require(caller, access.Customers...); err != nil {
		return nil, err
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty <= 0 {
		return nil, apperr.Validation("quantity must be a positive integer")
	}

	now := s.now().UTC()
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		meal, err := s.meals.WithTx(tx).GetMeal(ctx, req.MealID)
		if err != nil {
			return err
		}
		if meal == nil {
			return apperr.NotFound("meal %d not found", req.MealID)
		}

		cartID, err := repo.EnsureCart(ctx, caller.UserID, now)
		if err != nil {
			return err
		}
		have, err := repo.ItemQuantity(ctx, cartID, req.MealID)
		if err != nil {
			return err
		}
		if have+qty > MaxQuantity {
			return apperr.Validation("quantity must be at most %d", MaxQuantity)
		}
		if err := repo.SetItem(ctx, cartID, req.MealID, have+qty); err != nil {
			return err
		}
		return repo.Touch(ctx, cartID, now)
	})
	if err != nil {
		return nil, translate(err, "add cart item")
	}

	s.log.WithFields(logrus.Fields{"user_id": caller.UserID, "meal_id": req.MealID, "quantity": qty}).Debug("cart item added")
	return s.GetCart(ctx, caller)
}

// GetCart returns the caller's cart. A customer who never added anything
// gets an empty cart rather than a 404.
func (s *Service) GetCart(ctx context.Context, caller access.Identity) (*Cart, error) {
	if err := access.Require(caller, access.Customers...); err != nil {
		return nil, err
	}
	cart := &Cart{UserID: caller.UserID, Items: []CartItem{}}

	id, updated, ok, err := s.repo.GetCart(ctx, caller.UserID)
	if err != nil {
		return nil, translate(err, "get cart")
	}
	if !ok {
		return cart, nil
	}
	cart.ID = id
	cart.UpdatedAt = &updated

	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, translate(err, "list cart items")
	}
	var sum float64
	for i := range items {
		items[i].LineTotal = cents(items[i].UnitPrice * float64(items[i].Quantity))
		sum += items[i].LineTotal
	}
	cart.Items = items
	cart.Total = cents(sum)
	return cart, nil
}

// RemoveItem drops a meal from the caller's cart
func (s *Service) RemoveItem(ctx context.Context, caller access.Identity, mealID int64) (*Cart, error) {
	if err := access.Require(caller, access.Customers...); err != nil {
		return nil, err
	}
	id, _, ok, err := s.repo.GetCart(ctx, caller.UserID)
	if err != nil {
		return nil, translate(err, "get cart")
	}
	if !ok {
		return nil, apperr.NotFound("meal %d is not in the cart", mealID)
	}
	removed, err := s.repo.RemoveItem(ctx, id, mealID)
	if err != nil {
		return nil, translate(err, "remove cart item")
	}
	if !removed {
		return nil, apperr.NotFound("meal %d is not in the cart", mealID)
	}
	if err := s.repo.Touch(ctx, id, s.now().UTC()); err != nil {
		return nil, translate(err, "touch cart")
	}
	return s.GetCart(ctx, caller)
}

// Clear empties the caller's cart. Clearing an empty or missing cart is a
// no-op.
func (s *Service) Clear(ctx context.Context, caller access.Identity) error {
	if err := access.Require(caller, access.Customers...); err != nil {
		return err
	}
	id, _, ok, err := s.repo.GetCart(ctx, caller.UserID)
	if err != nil {
		return translate(err, "get cart")
	}
	if !ok {
		return nil
	}
	n, err := s.repo.ClearItems(ctx, id)
	if err != nil {
		return translate(err, "clear cart")
	}
	if n > 0 {
		if err := s.repo.Touch(ctx, id, s.now().UTC()); err != nil {
			return translate(err, "touch cart")
		}
	}
	return nil
}
