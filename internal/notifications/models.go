package notifications

import "time"

// Notification is one message delivered to one user
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarkReadRequest is the body of POST /notifications/read
type MarkReadRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// BroadcastRequest is the body of POST /notifications/broadcast
type BroadcastRequest struct {
	Message string `json:"message" binding:"required"`
}
