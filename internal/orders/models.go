package orders

import "time"

// Status is where an order sits in its lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is one customer's meal for one menu day. TotalPrice is fixed when
// the order is placed or changed and does not follow later price edits.
type Order struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	MenuID        int64     `json:"menuId"`
	MenuDate      string    `json:"menuDate"`
	MealID        int64     `json:"mealId"`
	MealName      string    `json:"mealName"`
	Quantity      int       `json:"quantity"`
	TotalPrice    float64   `json:"totalPrice"`
	Status        Status    `json:"status"`
	PaymentStatus bool      `json:"paymentStatus"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PlaceOrderRequest is the body of POST /orders
type PlaceOrderRequest struct {
	MenuDate string `json:"menuDate" binding:"required"`
	MealID   int64  `json:"mealId" binding:"required"`
	Quantity int    `json:"quantity"`
}

// ChangeOrderRequest is the body of PATCH /orders/:id. Nil fields keep
// their current value.
type ChangeOrderRequest struct {
	MealID   *int64 `json:"mealId"`
	Quantity *int   `json:"quantity"`
}
