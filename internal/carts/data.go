package carts

import (
	"context"
	"database/sql"
	"time"

	"bookameal/internal/database"
)

// Repository provides access to carts and cart_items
type Repository struct {
	db database.Querier
}

func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// EnsureCart returns the id of userID's cart, creating it on first use
func (r *Repository) EnsureCart(ctx context.Context, userID int64, now time.Time) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, now, now)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRowContext(ctx, "SELECT id FROM carts WHERE user_id = ?", userID).Scan(&id)
	return id, err
}

// GetCart returns userID's cart id and last update, or ok=false
func (r *Repository) GetCart(ctx context.Context, userID int64) (id int64, updatedAt time.Time, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, "SELECT id, updated_at FROM carts WHERE user_id = ?", userID).Scan(&id, &updatedAt)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return id, updatedAt, true, nil
}

// Touch bumps the cart's updated_at
func (r *Repository) Touch(ctx context.Context, cartID int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE carts SET updated_at = ? WHERE id = ?", now, cartID)
	return err
}

// ItemQuantity returns the quantity of mealID already in the cart, 0 if none
func (r *Repository) ItemQuantity(ctx context.Context, cartID, mealID int64) (int, error) {
	var q int
	err := r.db.QueryRowContext(ctx,
		"SELECT quantity FROM cart_items WHERE cart_id = ? AND meal_id = ?", cartID, mealID).Scan(&q)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return q, err
}

// SetItem writes the line for mealID, merging into an existing one
func (r *Repository) SetItem(ctx context.Context, cartID, mealID int64, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, meal_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT(cart_id, meal_id) DO UPDATE SET quantity = excluded.quantity
	`, cartID, mealID, quantity)
	return err
}

// RemoveItem deletes the line for mealID and reports whether one existed
func (r *Repository) RemoveItem(ctx context.Context, cartID, mealID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ? AND meal_id = ?", cartID, mealID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearItems empties the cart and returns how many lines were removed
func (r *Repository) ClearItems(ctx context.Context, cartID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Items lists the cart's lines joined with current meal name and price
func (r *Repository) Items(ctx context.Context, cartID int64) ([]CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.meal_id, m.name, m.price, ci.quantity
		FROM cart_items ci
		JOIN meals m ON m.id = ci.meal_id
		WHERE ci.cart_id = ?
		ORDER BY ci.id
	`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []CartItem{}
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.MealID, &it.MealName, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
