package orders

import (
	"context"
	"database/sql"
	"time"

	"bookameal/internal/database"
)

// Repository provides access to the orders table
type Repository struct {
	db database.Querier
}

// NewRepository creates a new orders repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const selectOrders = `
	SELECT o.id, o.user_id, o.menu_id, mn.date, o.meal_id, m.name,
		o.quantity, o.total_price, o.status, o.payment_status, o.created_at, o.updated_at
	FROM orders o
	JOIN menus mn ON mn.id = o.menu_id
	JOIN meals m ON m.id = o.meal_id`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.MenuID, &o.MenuDate, &o.MealID, &o.MealName,
		&o.Quantity, &o.TotalPrice, &o.Status, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collect(rows *sql.Rows) ([]Order, error) {
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// Get returns the order with the given id, or nil
func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrders+" WHERE o.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// MenuMealPrice returns the price of mealID if it is on the menu
func (r *Repository) MenuMealPrice(ctx context.Context, menuID, mealID int64) (float64, bool, error) {
	var price float64
	err := r.db.QueryRowContext(ctx, `
		SELECT m.price
		FROM menu_meals mm
		JOIN meals m ON m.id = mm.meal_id
		WHERE mm.menu_id = ? AND mm.meal_id = ?
	`, menuID, mealID).Scan(&price)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// HasActiveOrder reports whether the user already holds a non-cancelled
// order for the day.
func (r *Repository) HasActiveOrder(ctx context.Context, userID int64, day string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE user_id = ? AND order_day = ? AND status <> 'cancelled'",
		userID, day,
	).Scan(&n)
	return n > 0, err
}

// Insert stores a new order and sets its ID
func (r *Repository) Insert(ctx context.Context, o *Order) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, menu_id, meal_id, order_day, quantity, total_price, status, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.UserID, o.MenuID, o.MealID, o.MenuDate, o.Quantity, o.TotalPrice, o.Status, o.PaymentStatus, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

// UpdateLine replaces the meal, quantity and total of an order
func (r *Repository) UpdateLine(ctx context.Context, id, mealID int64, quantity int, total float64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE orders SET meal_id = ?, quantity = ?, total_price = ?, updated_at = ? WHERE id = ?",
		mealID, quantity, total, now, id,
	)
	return err
}

// UpdateStatus moves an order to status
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, now time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE orders SET status = ?, updated_at = ? WHERE id = ?", status, now, id)
	return err
}

// SetPaid flags an order as paid
func (r *Repository) SetPaid(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE orders SET payment_status = 1, updated_at = ? WHERE id = ?", now, id)
	return err
}

// Count returns the number of orders, for one user when userID is non-zero
func (r *Repository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	var err error
	if userID > 0 {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE user_id = ?", userID).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n)
	}
	return n, err
}

// List returns one page of orders, newest first with ties broken by id, for
// one user when userID is non-zero.
func (r *Repository) List(ctx context.Context, userID int64, limit, offset int) ([]Order, error) {
	q := selectOrders
	args := []any{}
	if userID > 0 {
		q += " WHERE o.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY o.created_at DESC, o.id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
