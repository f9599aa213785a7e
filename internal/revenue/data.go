package revenue

import (
	"context"

	"bookameal/internal/database"
)

// Repository aggregates the orders table. Every figure joins the order's
// menu, so the menu date decides which day an order counts for, and
// cancelled orders are left out.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new revenue repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Day returns the order count and revenue for one YYYY-MM-DD menu date
func (r *Repository) Day(ctx context.Context, date string) (int, float64, error) {
	var n int
	var sum float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(o.id), COALESCE(SUM(o.total_price), 0)
		FROM orders o
		JOIN menus mn ON mn.id = o.menu_id
		WHERE mn.date = ? AND o.status <> 'cancelled'
	`, date).Scan(&n, &sum)
	return n, sum, err
}

// Total returns the order count and revenue over all dates
func (r *Repository) Total(ctx context.Context) (int, float64, error) {
	var n int
	var sum float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(id), COALESCE(SUM(total_price), 0)
		FROM orders
		WHERE status <> 'cancelled'
	`).Scan(&n, &sum)
	return n, sum, err
}

// Range returns one summary per menu date in [from, to] that has orders
func (r *Repository) Range(ctx context.Context, from, to string) ([]DaySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mn.date, COUNT(o.id), SUM(o.total_price)
		FROM orders o
		JOIN menus mn ON mn.id = o.menu_id
		WHERE mn.date >= ? AND mn.date <= ? AND o.status <> 'cancelled'
		GROUP BY mn.date
		ORDER BY mn.date
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []DaySummary
	for rows.Next() {
		var d DaySummary
		if err := rows.Scan(&d.Date, &d.OrderCount, &d.Revenue); err != nil {
			return nil, err
		}
		d.Revenue = cents(d.Revenue)
		days = append(days, d)
	}
	return days, rows.Err()
}
