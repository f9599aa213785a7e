package users

import (
	"context"
	"database/sql"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/database"
)

// Repository provides access to the users table
type Repository struct {
	db database.Querier
}

// NewRepository creates a new users repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const userColumns = "id, email, username, password_hash, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = access.Role(role)
	return &u, nil
}

// Insert stores a new user and sets its id
func (r *Repository) Insert(ctx context.Context, u *User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, username, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Email, u.Username, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// GetByID returns a user or nil
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetByEmail returns a user or nil
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// Count returns the number of users
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// CountByRole returns the number of users holding role
func (r *Repository) CountByRole(ctx context.Context, role access.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = ?", string(role)).Scan(&n)
	return n, err
}

// List returns one page of users ordered by id
func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// Update writes email, username, password hash and role
func (r *Repository) Update(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, username = ?, password_hash = ?, role = ?, updated_at = ?
		WHERE id = ?
	`, u.Email, u.Username, u.PasswordHash, string(u.Role), u.UpdatedAt, u.ID)
	return err
}

// Delete removes a user; meals, orders, notifications and tokens cascade
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}

// CountOrdersOnOwnedMeals counts orders referencing meals the user owns
func (r *Repository) CountOrdersOnOwnedMeals(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders o
		JOIN meals m ON m.id = o.meal_id
		WHERE m.caterer_id = ?
	`, userID).Scan(&n)
	return n, err
}

// --- Password resets ---

// InsertPasswordReset stores the hash of a reset token
func (r *Repository) InsertPasswordReset(ctx context.Context, userID int64, tokenHash string, expiresAt, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, tokenHash, expiresAt, now)
	return err
}

// ConsumePasswordReset marks an unused, unexpired reset as used and returns
// its user id. ok is false when no such reset exists.
func (r *Repository) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (userID int64, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?
	`, tokenHash, now).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE password_resets SET used_at = ? WHERE token_hash = ?", now, tokenHash); err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// DeletePasswordResets drops every pending reset for userID
func (r *Repository) DeletePasswordResets(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM password_resets WHERE user_id = ? AND used_at IS NULL", userID)
	return err
}
