package catalog

import (
	"context"
	"database/sql"
	"time"

	"bookameal/internal/database"
)

// Repository provides access to meals, menus and their association table
type Repository struct {
	db database.Querier
}

// NewRepository creates a new catalog repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const mealColumns = "id, caterer_id, name, price, image_url, created_at, updated_at"

func scanMeal(row interface{ Scan(...any) error }) (*Meal, error) {
	var m Meal
	var image sql.NullString
	if err := row.Scan(&m.ID, &m.CatererID, &m.Name, &m.Price, &image, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if image.Valid {
		m.ImageURL = &image.String
	}
	return &m, nil
}

func collectMeals(rows *sql.Rows) ([]Meal, error) {
	defer rows.Close()
	var meals []Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

// --- Meal Operations ---

// InsertMeal stores a meal and sets its id
func (r *Repository) InsertMeal(ctx context.Context, m *Meal) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meals (caterer_id, name, price, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.CatererID, m.Name, m.Price, m.ImageURL, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

// GetMeal returns a meal or nil
func (r *Repository) GetMeal(ctx context.Context, id int64) (*Meal, error) {
	m, err := scanMeal(r.db.QueryRowContext(ctx, "SELECT "+mealColumns+" FROM meals WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// UpdateMeal writes name, price and image
func (r *Repository) UpdateMeal(ctx context.Context, m *Meal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE meals SET name = ?, price = ?, image_url = ?, updated_at = ? WHERE id = ?
	`, m.Name, m.Price, m.ImageURL, m.UpdatedAt, m.ID)
	return err
}

// DeleteMeal removes a meal; its menu associations cascade
func (r *Repository) DeleteMeal(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM meals WHERE id = ?", id)
	return err
}

// CountOrdersForMeal counts orders of any status referencing the meal
func (r *Repository) CountOrdersForMeal(ctx context.Context, mealID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE meal_id = ?", mealID).Scan(&n)
	return n, err
}

// SoleMealMenuDates returns the dates of menus whose only meal is mealID
func (r *Repository) SoleMealMenuDates(ctx context.Context, mealID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mn.date FROM menus mn
		JOIN menu_meals mm ON mm.menu_id = mn.id
		GROUP BY mn.id
		HAVING COUNT(*) = 1 AND MAX(mm.meal_id) = ?
		ORDER BY mn.date
	`, mealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// CountMeals returns the number of meals, optionally for one caterer
func (r *Repository) CountMeals(ctx context.Context, catererID int64) (int, error) {
	var n int
	var err error
	if catererID > 0 {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meals WHERE caterer_id = ?", catererID).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meals").Scan(&n)
	}
	return n, err
}

// ListMeals returns one page of meals ordered by id, optionally for one caterer
func (r *Repository) ListMeals(ctx context.Context, catererID int64, limit, offset int) ([]Meal, error) {
	var rows *sql.Rows
	var err error
	if catererID > 0 {
		rows, err = r.db.QueryContext(ctx, "SELECT "+mealColumns+" FROM meals WHERE caterer_id = ? ORDER BY id LIMIT ? OFFSET ?", catererID, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, "SELECT "+mealColumns+" FROM meals ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return collectMeals(rows)
}

// ExistingMealIDs returns which of ids exist
func (r *Repository) ExistingMealIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	ph, args := database.InClause(ids)
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM meals WHERE id IN ("+ph+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

// --- Menu Operations ---

const menuColumns = "id, date, name, created_by, created_at, updated_at"

func scanMenu(row interface{ Scan(...any) error }) (*Menu, error) {
	var m Menu
	var name sql.NullString
	var createdBy sql.NullInt64
	if err := row.Scan(&m.ID, &m.Date, &name, &createdBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		m.Name = &name.String
	}
	if createdBy.Valid {
		m.CreatedBy = &createdBy.Int64
	}
	return &m, nil
}

// GetMenuByDate returns the menu for a YYYY-MM-DD date, without meals, or nil
func (r *Repository) GetMenuByDate(ctx context.Context, date string) (*Menu, error) {
	m, err := scanMenu(r.db.QueryRowContext(ctx, "SELECT "+menuColumns+" FROM menus WHERE date = ?", date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// UpsertMenu creates the menu for date or refreshes the existing one and
// returns its id. A nil name keeps the current one.
func (r *Repository) UpsertMenu(ctx context.Context, date string, name *string, createdBy int64, now time.Time) (int64, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO menus (date, name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			name = COALESCE(excluded.name, menus.name),
			updated_at = excluded.updated_at
	`, date, name, createdBy, now, now); err != nil {
		return 0, err
	}

	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM menus WHERE date = ?", date).Scan(&id)
	return id, err
}

// ReplaceMenuMeals swaps the menu's meal set for mealIDs. Callers run it
// inside a transaction so readers never see the empty intermediate state.
func (r *Repository) ReplaceMenuMeals(ctx context.Context, menuID int64, mealIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM menu_meals WHERE menu_id = ?", menuID); err != nil {
		return err
	}

	stmt, err := r.db.PrepareContext(ctx, "INSERT INTO menu_meals (menu_id, meal_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, mealID := range mealIDs {
		if _, err := stmt.ExecContext(ctx, menuID, mealID); err != nil {
			return err
		}
	}
	return nil
}

// MenuMeals returns the meals on a menu ordered by meal id
func (r *Repository) MenuMeals(ctx context.Context, menuID int64) ([]Meal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.caterer_id, m.name, m.price, m.image_url, m.created_at, m.updated_at
		FROM meals m
		JOIN menu_meals mm ON mm.meal_id = m.id
		WHERE mm.menu_id = ?
		ORDER BY m.id
	`, menuID)
	if err != nil {
		return nil, err
	}
	return collectMeals(rows)
}

// ListMenus returns the menus dated within [from, to], oldest first, without meals
func (r *Repository) ListMenus(ctx context.Context, from, to string) ([]Menu, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+menuColumns+" FROM menus WHERE date >= ? AND date <= ? ORDER BY date", from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, *m)
	}
	return menus, rows.Err()
}
