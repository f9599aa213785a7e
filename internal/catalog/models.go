package catalog

import "time"

// Meal is a dish a caterer offers
type Meal struct {
	ID        int64     `json:"id"`
	CatererID int64     `json:"catererId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ImageURL  *string   `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Menu is the set of meals offered on one calendar date
type Menu struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Name      *string   `json:"name"`
	CreatedBy *int64    `json:"createdBy"`
	Meals     []Meal    `json:"meals"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateMealRequest is the body of POST /meals
type CreateMealRequest struct {
	Name     string   `json:"name" binding:"required"`
	Price    *float64 `json:"price" binding:"required"`
	ImageURL *string  `json:"imageUrl"`
}

// MealPatch is the body of PATCH /meals/:id. Nil fields are left unchanged.
type MealPatch struct {
	Name     *string  `json:"name"`
	Price    *float64 `json:"price"`
	ImageURL *string  `json:"imageUrl"`
}

// PublishMenuRequest is the body of PUT /menus/:date
type PublishMenuRequest struct {
	Name    *string `json:"name"`
	MealIDs []int64 `json:"mealIds" binding:"required"`
}
