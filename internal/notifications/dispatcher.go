// Package notifications persists per-user notifications and fans messages
// out to every customer.
package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/database"
	"bookameal/internal/metrics"
	"bookameal/internal/pagination"

	"github.com/sirupsen/logrus"
)

// MaxMarkReadIDs bounds one markRead call
const MaxMarkReadIDs = 500

// Dispatcher implements the notification operations
type Dispatcher struct {
	db   *sql.DB
	repo *Repository
	log  logrus.FieldLogger

	now func() time.Time
}

func NewDispatcher(db *sql.DB, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{db: db, repo: NewRepository(db), log: log, now: time.Now}
}

func internal(err error, action string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// NotifyAllCustomers fans message out to every customer in its own
// transaction (caterer or admin only).
func (d *Dispatcher) NotifyAllCustomers(ctx context.Context, caller access.Identity, message string) (int, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return 0, err
	}
	var n int
	err := database.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		var err error
		n, err = d.NotifyAllCustomersTx(ctx, tx, message)
		return err
	})
	if err != nil {
		return 0, internal(err, "notify customers")
	}
	metrics.RecordNotifications(n)
	return n, nil
}

// NotifyAllCustomersTx creates one unread notification per customer inside
// tx. The rows commit or roll back with the caller's transaction, so the
// caller records metrics.RecordNotifications once it has committed. With no
// customers it logs and does nothing.
func (d *Dispatcher) NotifyAllCustomersTx(ctx context.Context, tx *sql.Tx, message string) (int, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, apperr.Validation("notification message is required")
	}

	repo := d.repo.WithTx(tx)
	ids, err := repo.ListCustomerIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		d.log.Info("no customers to notify")
		return 0, nil
	}

	if err := repo.InsertBatch(ctx, ids, message, d.now().UTC()); err != nil {
		return 0, err
	}
	d.log.WithField("recipients", len(ids)).Debug("customers notified")
	return len(ids), nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// MarkRead flags the caller's notifications among ids as read and returns
// how many matched. Ids owned by someone else are ignored; when none match
// the call fails with NotFound. Repeating the call is harmless.
func (d *Dispatcher) MarkRead(ctx context.Context, caller access.Identity, ids []int64) (int, error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return 0, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, apperr.Validation("at least one notification id is required")
	}
	if len(ids) > MaxMarkReadIDs {
		return 0, apperr.Validation("at most %d notification ids per call", MaxMarkReadIDs)
	}

	var matched int
	err := database.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		repo := d.repo.WithTx(tx)
		n, err := repo.CountOwned(ctx, caller.UserID, ids)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("no matching notifications")
		}
		matched = n
		return repo.MarkRead(ctx, caller.UserID, ids)
	})
	if err != nil {
		return 0, internal(err, "mark read")
	}
	return matched, nil
}

// ListNotifications returns one page of the caller's notifications, newest first
func (d *Dispatcher) ListNotifications(ctx context.Context, caller access.Identity, unreadOnly bool, p pagination.Params) (pagination.Result[Notification], error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return pagination.Result[Notification]{}, err
	}
	total, err := d.repo.CountByUser(ctx, caller.UserID, unreadOnly)
	if err != nil {
		return pagination.Result[Notification]{}, internal(err, "count notifications")
	}
	w := pagination.Resolve(p, total)
	list, err := d.repo.ListByUser(ctx, caller.UserID, unreadOnly, w.Limit(), w.Offset())
	if err != nil {
		return pagination.Result[Notification]{}, internal(err, "list notifications")
	}
	return pagination.NewResult(list, w), nil
}
