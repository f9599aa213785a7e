package notifications

import (
	"context"
	"database/sql"
	"time"

	"bookameal/internal/database"
)

// Repository provides access to the notifications table
type Repository struct {
	db database.Querier
}

// NewRepository creates a new notifications repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// ListCustomerIDs returns the id of every customer
func (r *Repository) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM users WHERE role = 'customer' ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertBatch creates one unread notification per user
func (r *Repository) InsertBatch(ctx context.Context, userIDs []int64, message string, now time.Time) error {
	stmt, err := r.db.PrepareContext(ctx, "INSERT INTO notifications (user_id, message, is_read, created_at) VALUES (?, ?, 0, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range userIDs {
		if _, err := stmt.ExecContext(ctx, id, message, now); err != nil {
			return err
		}
	}
	return nil
}

// CountOwned counts how many of ids belong to userID
func (r *Repository) CountOwned(ctx context.Context, userID int64, ids []int64) (int, error) {
	ph, args := database.InClause(ids)
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND id IN ("+ph+")",
		append([]any{userID}, args...)...,
	).Scan(&n)
	return n, err
}

// MarkRead sets is_read on the notifications among ids that belong to userID
func (r *Repository) MarkRead(ctx context.Context, userID int64, ids []int64) error {
	ph, args := database.InClause(ids)
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id IN ("+ph+")",
		append([]any{userID}, args...)...,
	)
	return err
}

func filter(unreadOnly bool) string {
	if unreadOnly {
		return " AND is_read = 0"
	}
	return ""
}

// CountByUser counts a user's notifications
func (r *Repository) CountByUser(ctx context.Context, userID int64, unreadOnly bool) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = ?"+filter(unreadOnly), userID).Scan(&n)
	return n, err
}

// ListByUser returns one page of a user's notifications, newest first
func (r *Repository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?`+filter(unreadOnly)+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}
