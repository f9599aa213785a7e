package carts

import "time"

// Cart is a customer's staging area for meals. Prices are read live from
// the meals table, so a cart is never a price snapshot.
type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type CartItem struct {
	ID        int64   `json:"id"`
	MealID    int64   `json:"mealId"`
	MealName  string  `json:"mealName"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// AddItemRequest adds Quantity (default 1) of a meal to the cart
type AddItemRequest struct {
	MealID   int64 `json:"mealId" binding:"required"`
	Quantity *int  `json:"quantity"`
}
