// Package orders places customer orders against a day's menu and moves them
// through their lifecycle.
package orders

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
	"bookameal/internal/metrics"
	"bookameal/internal/pagination"

	"github.com/sirupsen/logrus"
)

// MaxQuantity bounds a single order line
const MaxQuantity = 1000

var errAlreadyOrdered = apperr.Conflict("already ordered for this date")

// Service implements the order engine
type Service struct {
	db      *sql.DB
	repo    *Repository
	catalog *catalog.Repository
	log     logrus.FieldLogger

	now func() time.Time
}

func NewService(db *sql.DB, log logrus.FieldLogger) *Service {
	return &Service{
		db:      db,
		repo:    NewRepository(db),
		catalog: catalog.NewRepository(db),
		log:     log,
		now:     time.Now,
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
	if database.IsUniqueViolation(err) {
		return errAlreadyOrdered
	}
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("order references a meal or menu that no longer exists")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// total is price × quantity rounded to cents
func total(price float64, quantity int) float64 {
	return math.Round(price*float64(quantity)*100) / 100
}

func validateQuantity(q int) error {
	if q <= 0 {
		return apperr.Validation("quantity must be a positive integer")
	}
	if q > MaxQuantity {
		return apperr.Validation("quantity must be at most %d", MaxQuantity)
	}
	return nil
}

// PlaceOrder orders mealID from the menu of menuDate for the calling
// customer. The menu lookup, the one-order-per-day check and the insert run
// in one transaction; the partial unique index on (user_id, order_day)
// rejects whatever slips past the check.
func (s *Service) PlaceOrder(ctx context.Context, caller access.Identity, req PlaceOrderRequest) (*Order, error) {
	if err := access.Require(caller, access.Customers...); err != nil {
		return nil, err
	}
	day, err := catalog.NormalizeDate(req.MenuDate)
	if err != nil {
		return nil, err
	}

	var id int64
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		menu, err := s.catalog.WithTx(tx).GetMenuByDate(ctx, day)
		if err != nil {
			return err
		}
		if menu == nil {
			return apperr.NotFound("no menu for %s", day)
		}

		price, ok, err := repo.MenuMealPrice(ctx, menu.ID, req.MealID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("meal not on menu for date")
		}

		taken, err := repo.HasActiveOrder(ctx, caller.UserID, day)
		if err != nil {
			return err
		}
		if taken {
			return errAlreadyOrdered
		}

		if err := validateQuantity(req.Quantity); err != nil {
			return err
		}

		now := s.now().UTC()
		o := &Order{
			UserID:     caller.UserID,
			MenuID:     menu.ID,
			MenuDate:   day,
			MealID:     req.MealID,
			Quantity:   req.Quantity,
			TotalPrice: total(price, req.Quantity),
			Status:     StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.Insert(ctx, o); err != nil {
			return err
		}
		id = o.ID
		return nil
	})
	if err != nil {
		err = translate(err, "place order")
		if apperr.IsConflict(err) {
			metrics.RecordOrderConflict()
		}
		return nil, err
	}

	metrics.RecordOrderPlaced()
	s.log.WithFields(logrus.Fields{"order_id": id, "user_id": caller.UserID, "day": day}).Info("order placed")
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err, "get order")
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", id)
	}
	return o, nil
}

// GetOrder returns an order to its owner or to staff
func (s *Service) GetOrder(ctx context.Context, caller access.Identity, id int64) (*Order, error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSelfOr(caller, o.UserID, access.Staff...); err != nil {
		return nil, err
	}
	return o, nil
}

// ChangeOrder swaps the meal and/or quantity of a pending order and
// recomputes its total from the meal's current price. The new meal must be
// on the order's own menu.
func (s *Service) ChangeOrder(ctx context.Context, caller access.Identity, id int64, req ChangeOrderRequest) (*Order, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}
	if req.MealID == nil && req.Quantity == nil {
		return nil, apperr.Validation("nothing to change")
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		o, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NotFound("order %d not found", id)
		}
		if o.Status.Terminal() {
			return apperr.Conflict("order %d is %s and cannot be changed", id, o.Status)
		}

		mealID, quantity := o.MealID, o.Quantity
		if req.MealID != nil {
			mealID = *req.MealID
		}
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if err := validateQuantity(quantity); err != nil {
			return err
		}

		price, ok, err := repo.MenuMealPrice(ctx, o.MenuID, mealID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("meal not on menu for date")
		}
		return repo.UpdateLine(ctx, id, mealID, quantity, total(price, quantity), s.now().UTC())
	})
	if err != nil {
		return nil, translate(err, "change order")
	}
	s.log.WithField("order_id", id).Info("order changed")
	return s.load(ctx, id)
}

// transition moves a pending order to target. check runs against the loaded
// order before the write.
func (s *Service) transition(ctx context.Context, id int64, target Status, check func(*Order) error) (*Order, error) {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		o, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NotFound("order %d not found", id)
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		if o.Status.Terminal() {
			return apperr.Conflict("order %d is already %s", id, o.Status)
		}
		return repo.UpdateStatus(ctx, id, target, s.now().UTC())
	})
	if err != nil {
		return nil, translate(err, "update order status")
	}

	metrics.RecordOrderTransition(string(target))
	s.log.WithFields(logrus.Fields{"order_id": id, "status": target}).Info("order status changed")
	return s.load(ctx, id)
}

// CompleteOrder marks a pending order completed
func (s *Service) CompleteOrder(ctx context.Context, caller access.Identity, id int64) (*Order, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, StatusCompleted, nil)
}

// CancelOrder cancels a pending order. Owners may cancel their own orders;
// staff may cancel any. Cancelling frees the day for a new order.
func (s *Service) CancelOrder(ctx context.Context, caller access.Identity, id int64) (*Order, error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, StatusCancelled, func(o *Order) error {
		return access.RequireSelfOr(caller, o.UserID, access.Staff...)
	})
}

// MarkPaid records payment for an order. Paying twice is a no-op; a
// cancelled order cannot be paid.
func (s *Service) MarkPaid(ctx context.Context, caller access.Identity, id int64) (*Order, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		o, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NotFound("order %d not found", id)
		}
		if o.Status == StatusCancelled {
			return apperr.Conflict("order %d is cancelled", id)
		}
		if o.PaymentStatus {
			return nil
		}
		return repo.SetPaid(ctx, id, s.now().UTC())
	})
	if err != nil {
		return nil, translate(err, "mark order paid")
	}
	return s.load(ctx, id)
}

func (s *Service) list(ctx context.Context, userID int64, p pagination.Params) (pagination.Result[Order], error) {
	n, err := s.repo.Count(ctx, userID)
	if err != nil {
		return pagination.Result[Order]{}, translate(err, "count orders")
	}
	w := pagination.Resolve(p, n)
	list, err := s.repo.List(ctx, userID, w.Limit(), w.Offset())
	if err != nil {
		return pagination.Result[Order]{}, translate(err, "list orders")
	}
	return pagination.NewResult(list, w), nil
}

// ListOrdersForUser returns a user's orders, newest first. Users see their
// own; staff may look at anyone's.
func (s *Service) ListOrdersForUser(ctx context.Context, caller access.Identity, userID int64, p pagination.Params) (pagination.Result[Order], error) {
	if err := access.RequireSelfOr(caller, userID, access.Staff...); err != nil {
		return pagination.Result[Order]{}, err
	}
	if userID <= 0 {
		return pagination.Result[Order]{}, apperr.Validation("invalid user id")
	}
	return s.list(ctx, userID, p)
}

// ListAllOrders returns every order, newest first
func (s *Service) ListAllOrders(ctx context.Context, caller access.Identity, p pagination.Params) (pagination.Result[Order], error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return pagination.Result[Order]{}, err
	}
	return s.list(ctx, 0, p)
}
